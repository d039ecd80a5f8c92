package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
	"github.com/plant-nursery-api/internal/validation"
	"github.com/rs/zerolog"
)

// ProductHandler handles public and admin product endpoints
type ProductHandler struct {
	services  *service.Services
	validator *validation.Validator
	log       zerolog.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(services *service.Services, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		services:  services,
		validator: validation.NewValidator(),
		log:       log.With().Str("handler", "product").Logger(),
	}
}

// ListProducts handles GET /api/products
// Query: categoryId, productType, availability, q, page|offset, limit
func (h *ProductHandler) ListProducts(c *gin.Context) {
	query := service.ProductQuery{
		CategoryID:   c.Query("categoryId"),
		ProductType:  models.ProductType(c.Query("productType")),
		Availability: models.Availability(c.Query("availability")),
		Search:       c.Query("q"),
		Page:         pageFromQuery(c),
	}

	var errs []validation.ValidationError
	if query.CategoryID != "" {
		if _, err := uuid.Parse(query.CategoryID); err != nil {
			errs = append(errs, validation.ValidationError{Field: "categoryId", Message: "categoryId must be a valid UUID", Value: query.CategoryID})
		}
	}
	if query.ProductType != "" && !models.ValidProductTypes[query.ProductType] {
		errs = append(errs, validation.ValidationError{Field: "productType", Message: "unknown product type", Value: c.Query("productType")})
	}
	if query.Availability != "" && !models.ValidAvailabilities[query.Availability] {
		errs = append(errs, validation.ValidationError{Field: "availability", Message: "unknown availability", Value: c.Query("availability")})
	}
	if len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	page, err := h.services.Catalog.ListProducts(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.log, err, "Products not found")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProduct handles GET /api/products/:id (id or slug)
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.services.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListRelated handles GET /api/products/:id/related
func (h *ProductHandler) ListRelated(c *gin.Context) {
	limit, _ := queryInt(c, "limit", service.DefaultRelatedSize)
	related, err := h.services.Catalog.ListRelated(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.log, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": related})
}

// CreateProduct handles POST /api/products and POST /api/admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c, err)
		return
	}
	if errs := h.validator.ValidateCreateProduct(&req); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	product, err := h.services.Catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err, "Category not found")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// ListAdminProducts handles GET /api/admin/products
// Query: page|offset, limit, q, hasContent
func (h *ProductHandler) ListAdminProducts(c *gin.Context) {
	query := service.ProductQuery{
		Search: c.Query("q"),
		Page:   pageFromQuery(c),
	}
	if raw := c.Query("hasContent"); raw != "" {
		hasContent, err := strconv.ParseBool(raw)
		if err != nil {
			respondValidation(c, []validation.ValidationError{{Field: "hasContent", Message: "hasContent must be true or false", Value: raw}})
			return
		}
		query.HasContent = &hasContent
	}

	page, err := h.services.Catalog.ListAdminProducts(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.log, err, "Products not found")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetContent handles GET /api/admin/products/:id/content
func (h *ProductHandler) GetContent(c *gin.Context) {
	content, err := h.services.Catalog.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Product content not found")
		return
	}
	c.JSON(http.StatusOK, content)
}

// UpsertContent handles POST /api/admin/products/:id/content
func (h *ProductHandler) UpsertContent(c *gin.Context) {
	var req models.ProductContentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadBody(c, err)
		return
	}
	if errs := h.validator.ValidateProductContent(&req); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	content, err := h.services.Catalog.UpsertContent(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err, "Product not found")
		return
	}
	c.JSON(http.StatusOK, content)
}
