package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plant-nursery-api/internal/catalog"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/rs/zerolog"
)

const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultRelatedSize = 4
)

// Page is a normalised page window. Callers may address pages either by
// page number or by offset; both are kept in sync.
type Page struct {
	Page   int
	Limit  int
	Offset int
}

// NewPage normalises page/offset/limit. When useOffset is set the offset
// wins and the page number is derived from it.
func NewPage(page, offset, limit int, useOffset bool) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if useOffset {
		if offset < 0 {
			offset = 0
		}
		return Page{Page: offset/limit + 1, Limit: limit, Offset: offset}
	}
	if page < 1 {
		page = 1
	}
	return Page{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// ProductQuery is a product listing request
type ProductQuery struct {
	CategoryID   string
	ProductType  models.ProductType
	Availability models.Availability
	Search       string
	HasContent   *bool
	Page         Page
}

func (q ProductQuery) filter() repository.ProductFilter {
	return repository.ProductFilter{
		CategoryID:   q.CategoryID,
		ProductType:  q.ProductType,
		Availability: q.Availability,
		Search:       strings.TrimSpace(q.Search),
		HasContent:   q.HasContent,
		Limit:        q.Page.Limit,
		Offset:       q.Page.Offset,
	}
}

// Pagination is the page block shared by paginated responses
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalPages int `json:"totalPages"`
}

func newPagination(total int, page Page) Pagination {
	return Pagination{
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		Offset:     page.Offset,
		TotalPages: (total + page.Limit - 1) / page.Limit,
	}
}

// ProductPage is one page of products
type ProductPage struct {
	Products []*models.Product `json:"products"`
	Pagination
}

// AdminProductPage is one page of the admin product listing
type AdminProductPage struct {
	Products []*models.AdminProduct `json:"products"`
	Pagination
}

// CategoryDetail is a main category with one page of its products
type CategoryDetail struct {
	models.Category
	Products   []*models.Product    `json:"products"`
	Count      models.CategoryCount `json:"_count"`
	Pagination Pagination           `json:"pagination"`
}

// CatalogStats are the counts reported by the metrics endpoint
type CatalogStats struct {
	Categories int                    `json:"categories"`
	Products   int                    `json:"products"`
	Jobs       models.JobStatusCounts `json:"jobs"`
}

// catalogService is the concrete implementation of CatalogService
type catalogService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newCatalogService(repos *repository.Repositories, log zerolog.Logger) *catalogService {
	return &catalogService{
		repos: repos,
		log:   log.With().Str("service", "catalog").Logger(),
	}
}

// ListMainCategories returns the allow-listed top-level categories, one per name
func (s *catalogService) ListMainCategories(ctx context.Context) ([]*models.CategoryWithCount, error) {
	categories, err := s.repos.Category.ListMain(ctx, models.MainCategoryNames)
	if err != nil {
		return nil, fmt.Errorf("list main categories: %w", err)
	}
	return models.DedupeCategoriesByName(categories), nil
}

// GetMainCategory returns a main category and a page of its products.
// Subcategories and categories outside the allow-list are reported as not found.
func (s *catalogService) GetMainCategory(ctx context.Context, slug string, page Page) (*CategoryDetail, error) {
	category, err := s.repos.Category.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil || !category.IsMain() {
		return nil, ErrNotFound
	}

	query := ProductQuery{CategoryID: category.ID, Page: page}
	products, err := s.repos.Product.List(ctx, query.filter())
	if err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}
	// Not atomic with the list above; under concurrent writes the two may disagree.
	total, err := s.repos.Product.Count(ctx, query.filter())
	if err != nil {
		return nil, fmt.Errorf("count category products: %w", err)
	}

	return &CategoryDetail{
		Category:   *category,
		Products:   products,
		Count:      models.CategoryCount{Products: total},
		Pagination: newPagination(total, page),
	}, nil
}

// ListProducts returns a page of products and the total for the same filter
func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	filter := query.filter()
	products, err := s.repos.Product.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	total, err := s.repos.Product.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	return &ProductPage{Products: products, Pagination: newPagination(total, query.Page)}, nil
}

// ListAdminProducts returns a page of the admin listing
func (s *catalogService) ListAdminProducts(ctx context.Context, query ProductQuery) (*AdminProductPage, error) {
	filter := query.filter()
	products, err := s.repos.Product.ListAdmin(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list admin products: %w", err)
	}
	total, err := s.repos.Product.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count admin products: %w", err)
	}
	return &AdminProductPage{Products: products, Pagination: newPagination(total, query.Page)}, nil
}

// GetProduct resolves a product by id when the value is a UUID, then by slug.
// A slug that happens to equal another product's id resolves to that product.
func (s *catalogService) GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error) {
	if _, err := uuid.Parse(idOrSlug); err == nil {
		product, err := s.repos.Product.GetByID(ctx, idOrSlug)
		if err != nil {
			return nil, fmt.Errorf("get product by id: %w", err)
		}
		if product != nil {
			return product, nil
		}
	}

	product, err := s.repos.Product.GetBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListRelated returns up to limit products sharing a category with the product
func (s *catalogService) ListRelated(ctx context.Context, idOrSlug string, limit int) ([]*models.Product, error) {
	product, err := s.GetProduct(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultRelatedSize
	}
	related, err := s.repos.Product.ListRelated(ctx, product, limit)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	return related, nil
}

// CreateProduct stores a manually entered product
func (s *catalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	slug := req.Slug
	if slug == "" {
		slug = catalog.Slugify(req.Name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: name does not produce a slug", ErrInvalidInput)
	}

	exists, err := s.repos.Product.SlugExists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: slug %q is taken", ErrConflict, slug)
	}

	var categoryID *string
	if req.CategoryID != "" {
		ok, err := s.repos.Category.Exists(ctx, req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("check category: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, req.CategoryID)
		}
		categoryID = &req.CategoryID
	}

	product := &models.Product{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Slug:         slug,
		Description:  req.Description,
		ProductType:  req.ProductType,
		Price:        req.Price,
		Availability: req.Availability,
		CategoryID:   categoryID,
		Source:       models.ProductSourceManual,
		Images:       req.Images,
		Metadata:     models.JSONMap(req.Metadata),
		CreatedAt:    time.Now(),
	}
	if product.ProductType == "" {
		product.ProductType = models.ProductTypePhysical
	}
	if product.Availability == "" {
		product.Availability = models.AvailabilityInStock
	}
	if len(req.Images) > 0 {
		product.ImageURL = &req.Images[0]
	}

	if err := s.repos.Product.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	if categoryID != nil {
		if _, err := s.repos.Product.LinkCategory(ctx, product.ID, *categoryID); err != nil {
			return nil, fmt.Errorf("link category: %w", err)
		}
	}

	s.log.Info().Str("product_id", product.ID).Str("slug", slug).Msg("Product created")
	return product, nil
}

// GetContent returns the long-form content of a product
func (s *catalogService) GetContent(ctx context.Context, productID string) (*models.ProductContent, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	content, err := s.repos.Content.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	if content == nil {
		return nil, ErrNotFound
	}
	return content, nil
}

// UpsertContent creates or replaces the long-form content of a product
func (s *catalogService) UpsertContent(ctx context.Context, productID string, req *models.ProductContentRequest) (*models.ProductContent, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	content := &models.ProductContent{
		ID:                  uuid.New().String(),
		ProductID:           productID,
		DetailedDescription: req.DetailedDescription,
		GrowingRequirements: req.GrowingRequirements,
		CareInstructions:    req.CareInstructions,
		Uses:                req.Uses,
		Benefits:            req.Benefits,
		LastUpdatedAt:       time.Now(),
	}
	if err := s.repos.Content.Upsert(ctx, content); err != nil {
		return nil, fmt.Errorf("upsert content: %w", err)
	}

	s.log.Info().Str("product_id", productID).Msg("Product content updated")
	return content, nil
}

// Stats returns catalog and job counts
func (s *catalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	categories, err := s.repos.Category.Count(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repos.Product.Count(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	jobs, err := s.repos.Job.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogStats{Categories: categories, Products: products, Jobs: jobs}, nil
}

func (s *catalogService) requireProduct(ctx context.Context, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return ErrNotFound
	}
	product, err := s.repos.Product.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrNotFound
	}
	return nil
}
