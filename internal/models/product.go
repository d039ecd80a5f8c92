package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductType classifies how a product is fulfilled
type ProductType string

const (
	ProductTypeDigital     ProductType = "DIGITAL"
	ProductTypeDropshipped ProductType = "DROPSHIPPED"
	ProductTypePhysical    ProductType = "PHYSICAL"
	ProductTypeBundle      ProductType = "BUNDLE"
)

// Availability is the stock state of a product
type Availability string

const (
	AvailabilityInStock      Availability = "IN_STOCK"
	AvailabilityOutOfStock   Availability = "OUT_OF_STOCK"
	AvailabilityPreOrder     Availability = "PRE_ORDER"
	AvailabilityDiscontinued Availability = "DISCONTINUED"
)

// ProductSource records which actor created the product
type ProductSource string

const (
	ProductSourceScraped ProductSource = "SCRAPED"
	ProductSourceManual  ProductSource = "MANUAL"
	ProductSourceAPI     ProductSource = "API"
)

// ValidProductTypes defines allowed product types
var ValidProductTypes = map[ProductType]bool{
	ProductTypeDigital:     true,
	ProductTypeDropshipped: true,
	ProductTypePhysical:    true,
	ProductTypeBundle:      true,
}

// ValidAvailabilities defines allowed availability values
var ValidAvailabilities = map[Availability]bool{
	AvailabilityInStock:      true,
	AvailabilityOutOfStock:   true,
	AvailabilityPreOrder:     true,
	AvailabilityDiscontinued: true,
}

// Product represents a catalog product
type Product struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Slug         string          `json:"slug" db:"slug"`
	Description  string          `json:"description" db:"description"`
	ProductType  ProductType     `json:"productType" db:"product_type"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Availability Availability    `json:"availability" db:"availability"`
	CategoryID   *string         `json:"categoryId" db:"category_id"`
	Source       ProductSource   `json:"source" db:"source"`
	SourceID     *string         `json:"sourceId,omitempty" db:"source_id"`
	SourceURL    *string         `json:"sourceUrl,omitempty" db:"source_url"`
	Images       pq.StringArray  `json:"images" db:"images"`
	ImageURL     *string         `json:"imageUrl,omitempty" db:"image_url"`
	Metadata     JSONMap         `json:"metadata" db:"metadata"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// AdminProduct is a product row in the admin listing
type AdminProduct struct {
	Product
	CategoryName *string `json:"categoryName" db:"category_name"`
	HasContent   bool    `json:"hasContent" db:"has_content"`
}

// ProductContent holds the long-form fields of a product (one-to-one)
type ProductContent struct {
	ID                  string    `json:"id" db:"id"`
	ProductID           string    `json:"productId" db:"product_id"`
	DetailedDescription string    `json:"detailedDescription" db:"detailed_description"`
	GrowingRequirements string    `json:"growingRequirements" db:"growing_requirements"`
	CareInstructions    string    `json:"careInstructions" db:"care_instructions"`
	Uses                string    `json:"uses" db:"uses"`
	Benefits            string    `json:"benefits" db:"benefits"`
	LastUpdatedAt       time.Time `json:"lastUpdatedAt" db:"last_updated_at"`
}

// CreateProductRequest is the body accepted when creating a product by hand
type CreateProductRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Slug         string          `json:"slug" validate:"omitempty,slug,max=200"`
	Description  string          `json:"description" validate:"max=10000"`
	ProductType  ProductType     `json:"productType" validate:"omitempty,oneof=DIGITAL DROPSHIPPED PHYSICAL BUNDLE"`
	Price        decimal.Decimal `json:"price" validate:"gte=0"`
	Availability Availability    `json:"availability" validate:"omitempty,oneof=IN_STOCK OUT_OF_STOCK PRE_ORDER DISCONTINUED"`
	CategoryID   string          `json:"categoryId" validate:"omitempty,uuid"`
	Images       []string        `json:"images" validate:"max=20,dive,url"`
	Metadata     map[string]any  `json:"metadata"`
}

// ProductContentRequest is the upsert body for product content
type ProductContentRequest struct {
	DetailedDescription string `json:"detailedDescription" validate:"max=20000"`
	GrowingRequirements string `json:"growingRequirements" validate:"max=10000"`
	CareInstructions    string `json:"careInstructions" validate:"max=10000"`
	Uses                string `json:"uses" validate:"max=10000"`
	Benefits            string `json:"benefits" validate:"max=10000"`
}
