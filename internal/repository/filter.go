package repository

import (
	"strings"

	"github.com/plant-nursery-api/internal/models"
)

// categoryMembership matches a product (aliased p) that belongs to the
// category identified by ref, either through the legacy category_id pointer
// or through the join table. List and count queries share this predicate.
func categoryMembership(ref string) string {
	return "(p.category_id = " + ref + " OR EXISTS (SELECT 1 FROM product_categories pc" +
		" WHERE pc.product_id = p.id AND pc.category_id = " + ref + "))"
}

// ProductFilter holds the list/count predicate and the page window
type ProductFilter struct {
	CategoryID   string
	ProductType  models.ProductType
	Availability models.Availability
	Search       string
	HasContent   *bool
	Limit        int
	Offset       int
}

// where builds the WHERE clause (with ? bindvars) shared by List and Count
func (f ProductFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.CategoryID != "" {
		conds = append(conds, categoryMembership("?"))
		args = append(args, f.CategoryID, f.CategoryID)
	}
	if f.ProductType != "" {
		conds = append(conds, "p.product_type = ?")
		args = append(args, f.ProductType)
	}
	if f.Availability != "" {
		conds = append(conds, "p.availability = ?")
		args = append(args, f.Availability)
	}
	if f.Search != "" {
		conds = append(conds, "(p.name ILIKE ? OR p.slug ILIKE ?)")
		pattern := "%" + escapeLike(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.HasContent != nil {
		clause := "EXISTS (SELECT 1 FROM product_contents c WHERE c.product_id = p.id)"
		if !*f.HasContent {
			clause = "NOT " + clause
		}
		conds = append(conds, clause)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
