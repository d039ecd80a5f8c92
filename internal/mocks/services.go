package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
)

// MockCatalogService is a mock implementation of CatalogService.
// Unset funcs return empty results.
type MockCatalogService struct {
	ListMainCategoriesFunc func(ctx context.Context) ([]*models.CategoryWithCount, error)
	GetMainCategoryFunc    func(ctx context.Context, slug string, page service.Page) (*service.CategoryDetail, error)
	ListProductsFunc       func(ctx context.Context, query service.ProductQuery) (*service.ProductPage, error)
	ListAdminProductsFunc  func(ctx context.Context, query service.ProductQuery) (*service.AdminProductPage, error)
	GetProductFunc         func(ctx context.Context, idOrSlug string) (*models.Product, error)
	ListRelatedFunc        func(ctx context.Context, idOrSlug string, limit int) ([]*models.Product, error)
	CreateProductFunc      func(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetContentFunc         func(ctx context.Context, productID string) (*models.ProductContent, error)
	UpsertContentFunc      func(ctx context.Context, productID string, req *models.ProductContentRequest) (*models.ProductContent, error)
	StatsFunc              func(ctx context.Context) (*service.CatalogStats, error)

	// LastQuery records the query of the most recent listing call
	LastQuery service.ProductQuery
}

// Verify interface compliance
var _ service.CatalogService = (*MockCatalogService)(nil)

func NewMockCatalogService() *MockCatalogService {
	return &MockCatalogService{}
}

func (m *MockCatalogService) ListMainCategories(ctx context.Context) ([]*models.CategoryWithCount, error) {
	if m.ListMainCategoriesFunc != nil {
		return m.ListMainCategoriesFunc(ctx)
	}
	return []*models.CategoryWithCount{}, nil
}

func (m *MockCatalogService) GetMainCategory(ctx context.Context, slug string, page service.Page) (*service.CategoryDetail, error) {
	if m.GetMainCategoryFunc != nil {
		return m.GetMainCategoryFunc(ctx, slug, page)
	}
	return nil, service.ErrNotFound
}

func (m *MockCatalogService) ListProducts(ctx context.Context, query service.ProductQuery) (*service.ProductPage, error) {
	m.LastQuery = query
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, query)
	}
	return &service.ProductPage{Products: []*models.Product{}}, nil
}

func (m *MockCatalogService) ListAdminProducts(ctx context.Context, query service.ProductQuery) (*service.AdminProductPage, error) {
	m.LastQuery = query
	if m.ListAdminProductsFunc != nil {
		return m.ListAdminProductsFunc(ctx, query)
	}
	return &service.AdminProductPage{Products: []*models.AdminProduct{}}, nil
}

func (m *MockCatalogService) GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, idOrSlug)
	}
	return nil, service.ErrNotFound
}

func (m *MockCatalogService) ListRelated(ctx context.Context, idOrSlug string, limit int) ([]*models.Product, error) {
	if m.ListRelatedFunc != nil {
		return m.ListRelatedFunc(ctx, idOrSlug, limit)
	}
	return []*models.Product{}, nil
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, req)
	}
	return &models.Product{ID: "test-product-id", Name: req.Name, Slug: req.Slug, Source: models.ProductSourceManual}, nil
}

func (m *MockCatalogService) GetContent(ctx context.Context, productID string) (*models.ProductContent, error) {
	if m.GetContentFunc != nil {
		return m.GetContentFunc(ctx, productID)
	}
	return nil, service.ErrNotFound
}

func (m *MockCatalogService) UpsertContent(ctx context.Context, productID string, req *models.ProductContentRequest) (*models.ProductContent, error) {
	if m.UpsertContentFunc != nil {
		return m.UpsertContentFunc(ctx, productID, req)
	}
	return &models.ProductContent{ProductID: productID, DetailedDescription: req.DetailedDescription}, nil
}

func (m *MockCatalogService) Stats(ctx context.Context) (*service.CatalogStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &service.CatalogStats{Jobs: models.JobStatusCounts{}}, nil
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	mu            sync.Mutex
	CreateJobFunc func(ctx context.Context, req *models.ImportJobRequest) (*models.ScrapingJob, error)
	RunJobFunc    func(ctx context.Context, job *models.ScrapingJob) error
	RanJobs       []*models.ScrapingJob
	CreatedJobs   []*models.ScrapingJob
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		RanJobs:     make([]*models.ScrapingJob, 0),
		CreatedJobs: make([]*models.ScrapingJob, 0),
	}
}

func (m *MockImportService) CreateJob(ctx context.Context, req *models.ImportJobRequest) (*models.ScrapingJob, error) {
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, req)
	}
	jobType := req.Type
	if jobType == "" {
		jobType = models.JobTypeFull
	}
	job := &models.ScrapingJob{
		ID:     "test-job-id",
		Type:   jobType,
		Status: models.JobStatusPending,
		UseAPI: req.UseAPI,
	}
	m.mu.Lock()
	m.CreatedJobs = append(m.CreatedJobs, job)
	m.mu.Unlock()
	return job, nil
}

func (m *MockImportService) RunJob(ctx context.Context, job *models.ScrapingJob) error {
	m.mu.Lock()
	m.RanJobs = append(m.RanJobs, job)
	m.mu.Unlock()
	if m.RunJobFunc != nil {
		return m.RunJobFunc(ctx, job)
	}
	job.Status = models.JobStatusCompleted
	return nil
}

// Ran returns the number of RunJob calls so far
func (m *MockImportService) Ran() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RanJobs)
}

func (m *MockImportService) GetStatus(ctx context.Context, id string) (*models.ScrapingJob, error) {
	for _, job := range m.CreatedJobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, service.ErrNotFound
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs          map[string]*models.ScrapingJob
	Dispatched    []*models.ScrapingJob
	StopJobFunc   func(ctx context.Context, id string) (*models.ScrapingJob, error)
	ImportService service.ImportService
}

// Verify interface compliance
var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs: make(map[string]*models.ScrapingJob),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) Dispatch(job *models.ScrapingJob) {
	m.Dispatched = append(m.Dispatched, job)
}

func (m *MockJobService) StopJob(ctx context.Context, id string) (*models.ScrapingJob, error) {
	if m.StopJobFunc != nil {
		return m.StopJobFunc(ctx, id)
	}
	job, ok := m.Jobs[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, service.ErrJobFinished
	}
	job.Status = models.JobStatusFailed
	if job.Metadata == nil {
		job.Metadata = models.JSONMap{}
	}
	job.Metadata[models.JobMetaStopped] = true
	return job, nil
}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.ScrapingJob, error) {
	job, ok := m.Jobs[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return job, nil
}

func (m *MockJobService) ListJobs(ctx context.Context, limit int) ([]*models.ScrapingJob, error) {
	out := make([]*models.ScrapingJob, 0, len(m.Jobs))
	for _, job := range m.Jobs {
		out = append(out, job)
	}
	return out, nil
}

func (m *MockJobService) CountByStatus(ctx context.Context) (models.JobStatusCounts, error) {
	counts := models.JobStatusCounts{}
	for _, job := range m.Jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func (m *MockJobService) IsActive(id string) bool {
	job, ok := m.Jobs[id]
	return ok && job.Status == models.JobStatusRunning
}

func (m *MockJobService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}

// MockRepairService is a mock implementation of RepairService
type MockRepairService struct {
	RepairFunc func(ctx context.Context, opts service.RepairOptions) (*service.RepairReport, error)
	Calls      []service.RepairOptions
}

// Verify interface compliance
var _ service.RepairService = (*MockRepairService)(nil)

func NewMockRepairService() *MockRepairService {
	return &MockRepairService{}
}

func (m *MockRepairService) RepairCategories(ctx context.Context, opts service.RepairOptions) (*service.RepairReport, error) {
	m.Calls = append(m.Calls, opts)
	if m.RepairFunc != nil {
		return m.RepairFunc(ctx, opts)
	}
	return &service.RepairReport{DryRun: opts.DryRun}, nil
}

// MockSource is an in-memory Source that replays a fixed product list
type MockSource struct {
	SourceName string
	Products   []*models.ScrapedProduct
	// FetchErr is returned after every product has been visited
	FetchErr error
	// BeforeEach runs before each product is visited
	BeforeEach func(i int)
	// Unreadable are refs reported as skipped before any product is visited
	Unreadable []string
	LastOpts   service.FetchOptions
}

var _ service.Source = (*MockSource)(nil)

func NewMockSource(name string, products ...*models.ScrapedProduct) *MockSource {
	return &MockSource{SourceName: name, Products: products}
}

func (m *MockSource) Name() string { return m.SourceName }

func (m *MockSource) Fetch(ctx context.Context, opts service.FetchOptions, visit func(*models.ScrapedProduct) error) error {
	m.LastOpts = opts
	for _, ref := range m.Unreadable {
		opts.Skipped(ref, errors.New("status 403"))
	}
	for i, p := range m.Products {
		if m.BeforeEach != nil {
			m.BeforeEach(i)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(p); err != nil {
			return err
		}
	}
	return m.FetchErr
}
