package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
	"github.com/shopspring/decimal"
)

const (
	treesID  = "0b6f8c8e-6c1e-4d53-9a43-5c1f0f6d8a01"
	shrubsID = "0b6f8c8e-6c1e-4d53-9a43-5c1f0f6d8a02"
	prod1ID  = "7d0e4d1c-2f6b-4a8e-9d1b-1a2b3c4d5e01"
	prod2ID  = "7d0e4d1c-2f6b-4a8e-9d1b-1a2b3c4d5e02"
	prod3ID  = "7d0e4d1c-2f6b-4a8e-9d1b-1a2b3c4d5e03"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		offset     int
		limit      int
		useOffset  bool
		wantPage   int
		wantOffset int
		wantLimit  int
	}{
		{"defaults", 0, 0, 0, false, 1, 0, service.DefaultPageSize},
		{"page two", 2, 0, 10, false, 2, 10, 10},
		{"limit capped", 1, 0, 1000, false, 1, 0, service.MaxPageSize},
		{"offset wins", 5, 30, 10, true, 4, 30, 10},
		{"negative offset", 0, -5, 10, true, 1, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.NewPage(tt.page, tt.offset, tt.limit, tt.useOffset)
			if got.Page != tt.wantPage || got.Offset != tt.wantOffset || got.Limit != tt.wantLimit {
				t.Errorf("NewPage() = %+v, want page=%d offset=%d limit=%d",
					got, tt.wantPage, tt.wantOffset, tt.wantLimit)
			}
		})
	}
}

func TestCatalogService_ListMainCategories(t *testing.T) {
	env := newTestEnv(t, false)
	env.categories.Add(category(treesID, "Trees", "trees"))
	env.categories.Add(category("dup-trees", "Trees", "trees-2"))
	env.categories.Add(category(shrubsID, "Shrubs", "shrubs"))
	env.categories.Add(category("misc", "Miscellaneous", "misc"))
	sub := category("sub", "Perennials", "perennials-sub")
	sub.ParentID = strPtr(treesID)
	env.categories.Add(sub)
	env.categories.ProductCounts[treesID] = 7

	got, err := env.services.Catalog.ListMainCategories(context.Background())
	if err != nil {
		t.Fatalf("ListMainCategories failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 main categories, got %d", len(got))
	}
	for _, c := range got {
		if c.Name == "Trees" && c.Count.Products != 7 {
			t.Errorf("Expected Trees to carry 7 products, got %d", c.Count.Products)
		}
	}
}

func TestCatalogService_GetMainCategory(t *testing.T) {
	env := newTestEnv(t, false)
	env.categories.Add(category(treesID, "Trees", "trees"))
	env.categories.Add(category("misc", "Miscellaneous", "misc"))
	sub := category("sub", "Shrubs", "shrubs-sub")
	sub.ParentID = strPtr(treesID)
	env.categories.Add(sub)

	// p1 by legacy pointer, p2 by join table, p3 by both
	env.products.Create(context.Background(), product(prod1ID, "lilly-pilly", strPtr(treesID)))
	env.products.Create(context.Background(), product(prod2ID, "bottlebrush", nil))
	env.products.LinkCategory(context.Background(), prod2ID, treesID)
	env.products.Create(context.Background(), product(prod3ID, "banksia", strPtr(treesID)))
	env.products.LinkCategory(context.Background(), prod3ID, treesID)

	detail, err := env.services.Catalog.GetMainCategory(context.Background(), "trees", service.NewPage(1, 0, 20, false))
	if err != nil {
		t.Fatalf("GetMainCategory failed: %v", err)
	}
	if len(detail.Products) != 3 {
		t.Errorf("Expected 3 products, got %d", len(detail.Products))
	}
	if detail.Count.Products != 3 {
		t.Errorf("Expected _count.products 3, got %d", detail.Count.Products)
	}

	for _, slug := range []string{"misc", "shrubs-sub", "missing"} {
		t.Run(slug, func(t *testing.T) {
			_, err := env.services.Catalog.GetMainCategory(context.Background(), slug, service.NewPage(1, 0, 20, false))
			if !errors.Is(err, service.ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCatalogService_ListProductsTotalMatchesFilter(t *testing.T) {
	env := newTestEnv(t, false)
	for i, id := range []string{prod1ID, prod2ID, prod3ID} {
		p := product(id, "plant-"+string(rune('a'+i)), nil)
		if i == 2 {
			p.Availability = models.AvailabilityOutOfStock
		}
		env.products.Create(context.Background(), p)
	}

	page, err := env.services.Catalog.ListProducts(context.Background(), service.ProductQuery{
		Availability: models.AvailabilityInStock,
		Page:         service.NewPage(1, 0, 1, false),
	})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(page.Products) != 1 {
		t.Errorf("Expected 1 product on the page, got %d", len(page.Products))
	}
	if page.Total != 2 {
		t.Errorf("Expected total 2, got %d", page.Total)
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 pages, got %d", page.TotalPages)
	}
}

func TestCatalogService_GetProduct(t *testing.T) {
	env := newTestEnv(t, false)
	env.products.Create(context.Background(), product(prod1ID, "lilly-pilly", nil))

	tests := []struct {
		name    string
		key     string
		wantID  string
		wantErr error
	}{
		{"by id", prod1ID, prod1ID, nil},
		{"by slug", "lilly-pilly", prod1ID, nil},
		{"unknown uuid", prod2ID, "", service.ErrNotFound},
		{"unknown slug", "nope", "", service.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.services.Catalog.GetProduct(context.Background(), tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && got.ID != tt.wantID {
				t.Errorf("Expected product %s, got %s", tt.wantID, got.ID)
			}
		})
	}
}

func TestCatalogService_CreateProduct(t *testing.T) {
	env := newTestEnv(t, false)
	env.categories.Add(category(treesID, "Trees", "trees"))

	req := &models.CreateProductRequest{
		Name:       "Weeping Lilly Pilly",
		Price:      decimal.RequireFromString("39.50"),
		CategoryID: treesID,
		Images:     []string{"https://cdn.example.com/wlp.jpg"},
	}
	created, err := env.services.Catalog.CreateProduct(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	if created.Slug != "weeping-lilly-pilly" {
		t.Errorf("Expected derived slug, got %q", created.Slug)
	}
	if created.Source != models.ProductSourceManual {
		t.Errorf("Expected MANUAL source, got %s", created.Source)
	}
	if created.ProductType != models.ProductTypePhysical || created.Availability != models.AvailabilityInStock {
		t.Errorf("Expected PHYSICAL/IN_STOCK defaults, got %s/%s", created.ProductType, created.Availability)
	}
	if created.ImageURL == nil || *created.ImageURL != req.Images[0] {
		t.Error("Expected imageUrl to be the first image")
	}
	if !env.products.Links[created.ID][treesID] {
		t.Error("Expected the product to be linked to its category")
	}

	// Same name again collides on the slug
	if _, err := env.services.Catalog.CreateProduct(context.Background(), req); !errors.Is(err, service.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	bad := &models.CreateProductRequest{Name: "Orphan", CategoryID: shrubsID}
	if _, err := env.services.Catalog.CreateProduct(context.Background(), bad); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown category, got %v", err)
	}
}

func TestCatalogService_Content(t *testing.T) {
	env := newTestEnv(t, false)
	env.products.Create(context.Background(), product(prod1ID, "lilly-pilly", nil))
	ctx := context.Background()

	if _, err := env.services.Catalog.GetContent(ctx, prod1ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before upsert, got %v", err)
	}

	first, err := env.services.Catalog.UpsertContent(ctx, prod1ID, &models.ProductContentRequest{Uses: "Hedging"})
	if err != nil {
		t.Fatalf("UpsertContent failed: %v", err)
	}
	second, err := env.services.Catalog.UpsertContent(ctx, prod1ID, &models.ProductContentRequest{Uses: "Screening"})
	if err != nil {
		t.Fatalf("UpsertContent failed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("Expected the second upsert to keep the content id")
	}

	got, err := env.services.Catalog.GetContent(ctx, prod1ID)
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	if got.Uses != "Screening" {
		t.Errorf("Expected updated content, got %q", got.Uses)
	}
	if got.LastUpdatedAt.IsZero() {
		t.Error("lastUpdatedAt should be set")
	}

	if _, err := env.services.Catalog.UpsertContent(ctx, prod2ID, &models.ProductContentRequest{Uses: "x"}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestCatalogService_Stats(t *testing.T) {
	env := newTestEnv(t, false)
	env.categories.Add(category(treesID, "Trees", "trees"))
	env.products.Create(context.Background(), product(prod1ID, "lilly-pilly", nil))
	env.jobs.Create(context.Background(), &models.ScrapingJob{ID: "j1", Status: models.JobStatusCompleted, Metadata: models.JSONMap{}})

	stats, err := env.services.Catalog.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Categories != 1 || stats.Products != 1 {
		t.Errorf("Expected 1 category and 1 product, got %d and %d", stats.Categories, stats.Products)
	}
	if stats.Jobs[models.JobStatusCompleted] != 1 || stats.Jobs[models.JobStatusRunning] != 0 {
		t.Errorf("Unexpected job counts: %v", stats.Jobs)
	}
}
