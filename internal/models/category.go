package models

import (
	"strings"
	"time"
)

// Category represents a catalog category. A nil ParentID marks a top-level category.
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	Image       string    `json:"image,omitempty" db:"image"`
	ParentID    *string   `json:"parentId" db:"parent_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// CategoryCount mirrors the `_count` block returned to clients
type CategoryCount struct {
	Products int `json:"products"`
}

// CategoryWithCount is a category together with its product count
type CategoryWithCount struct {
	Category
	ProductCount int           `json:"-" db:"product_count"`
	Count        CategoryCount `json:"_count" db:"-"`
}

// MainCategoryNames is the fixed allow-list of top-level categories shown publicly
var MainCategoryNames = []string{
	"Trees",
	"Shrubs",
	"Perennials",
	"Grasses",
	"Groundcovers",
	"Climbers",
	"Succulents",
	"Natives",
	"Fruit Trees",
	"Hedging & Screening",
	"Indoor Plants",
	"Palms",
	"Ferns",
	"Bulbs",
	"Herbs & Vegetables",
}

var mainCategorySet = func() map[string]bool {
	set := make(map[string]bool, len(MainCategoryNames))
	for _, name := range MainCategoryNames {
		set[name] = true
	}
	return set
}()

// IsMainCategoryName reports whether name is on the main-category allow-list
func IsMainCategoryName(name string) bool {
	return mainCategorySet[name]
}

// IsMain reports whether the category may be shown publicly as a main category
func (c *Category) IsMain() bool {
	return c.ParentID == nil && IsMainCategoryName(c.Name)
}

// DedupeCategoriesByName keeps the first category seen for each name
// (case-insensitive), preserving input order.
func DedupeCategoriesByName(categories []*CategoryWithCount) []*CategoryWithCount {
	seen := make(map[string]bool, len(categories))
	out := make([]*CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
