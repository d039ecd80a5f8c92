package repository

import (
	"strings"
	"testing"

	"github.com/plant-nursery-api/internal/models"
)

func TestProductFilter_Where(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		filter   ProductFilter
		contains []string
		args     int
	}{
		{"empty", ProductFilter{}, nil, 0},
		{"category", ProductFilter{CategoryID: "c1"}, []string{"p.category_id = ?", "product_categories pc"}, 2},
		{"type and availability", ProductFilter{ProductType: models.ProductTypePhysical, Availability: models.AvailabilityInStock},
			[]string{"p.product_type = ?", "p.availability = ?", " AND "}, 2},
		{"search", ProductFilter{Search: "lilly"}, []string{"p.name ILIKE ?"}, 2},
		{"has content", ProductFilter{HasContent: &yes}, []string{"EXISTS (SELECT 1 FROM product_contents"}, 0},
		{"no content", ProductFilter{HasContent: &no}, []string{"NOT EXISTS (SELECT 1 FROM product_contents"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := tt.filter.where()
			if len(tt.contains) == 0 && clause != "" {
				t.Errorf("Expected empty clause, got %q", clause)
			}
			for _, want := range tt.contains {
				if !strings.Contains(clause, want) {
					t.Errorf("Expected %q in %q", want, clause)
				}
			}
			if len(args) != tt.args {
				t.Errorf("Expected %d args, got %d", tt.args, len(args))
			}
		})
	}
}

func TestProductFilter_SearchIsEscaped(t *testing.T) {
	_, args := ProductFilter{Search: `50%_off\`}.where()
	if args[0] != `%50\%\_off\\%` {
		t.Errorf("Unexpected pattern %v", args[0])
	}
}

func TestCategoryMembership_SameRefBothSides(t *testing.T) {
	got := categoryMembership("c.id")
	if strings.Count(got, "c.id") != 2 {
		t.Errorf("Expected the reference on both sides of the OR, got %q", got)
	}
	if !strings.HasPrefix(got, "(") || !strings.HasSuffix(got, ")") {
		t.Errorf("Predicate must be parenthesised, got %q", got)
	}
}
