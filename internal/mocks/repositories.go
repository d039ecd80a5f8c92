package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
)

// MockCategoryRepository is a mock implementation of CategoryRepository
type MockCategoryRepository struct {
	Categories map[string]*models.Category
	// Order keeps insertion order, standing in for created_at
	Order []string
	// ProductCounts feeds ListMain, keyed by category ID
	ProductCounts map[string]int
	CreateError   error
	CreatedCount  int
}

var _ repository.CategoryRepository = (*MockCategoryRepository)(nil)

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories:    make(map[string]*models.Category),
		ProductCounts: make(map[string]int),
	}
}

// Add stores a category directly, bypassing GetOrCreate
func (m *MockCategoryRepository) Add(c *models.Category) {
	if _, ok := m.Categories[c.ID]; !ok {
		m.Order = append(m.Order, c.ID)
	}
	m.Categories[c.ID] = c
}

func (m *MockCategoryRepository) ListMain(ctx context.Context, names []string) ([]*models.CategoryWithCount, error) {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	out := []*models.CategoryWithCount{}
	for _, id := range m.Order {
		c := m.Categories[id]
		if c.ParentID != nil || !allowed[c.Name] {
			continue
		}
		row := &models.CategoryWithCount{Category: *c, ProductCount: m.ProductCounts[id]}
		row.Count.Products = row.ProductCount
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockCategoryRepository) ListAll(ctx context.Context) ([]*models.Category, error) {
	out := make([]*models.Category, 0, len(m.Order))
	for _, id := range m.Order {
		out = append(out, m.Categories[id])
	}
	return out, nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return m.Categories[id], nil
}

func (m *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	for _, id := range m.Order {
		if c := m.Categories[id]; c.Slug == slug {
			return c, nil
		}
	}
	return nil, nil
}

func (m *MockCategoryRepository) GetOrCreate(ctx context.Context, category *models.Category) (*models.Category, bool, error) {
	if m.CreateError != nil {
		return nil, false, m.CreateError
	}
	if existing, _ := m.GetBySlug(ctx, category.Slug); existing != nil {
		return existing, false, nil
	}
	stored := *category
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.Add(&stored)
	m.CreatedCount++
	return &stored, true, nil
}

func (m *MockCategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.Categories[id]
	return ok, nil
}

func (m *MockCategoryRepository) Count(ctx context.Context) (int, error) {
	return len(m.Categories), nil
}

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	Products map[string]*models.Product
	// Links is the product_categories join table: product ID -> category IDs
	Links map[string]map[string]bool
	// WithContent marks products that have a ProductContent row
	WithContent map[string]bool
	CreateError error
	UpdateError error
	// LastFilter records the filter of the most recent List call
	LastFilter repository.ProductFilter
}

var _ repository.ProductRepository = (*MockProductRepository)(nil)

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		Products:    make(map[string]*models.Product),
		Links:       make(map[string]map[string]bool),
		WithContent: make(map[string]bool),
	}
}

func (m *MockProductRepository) inCategory(p *models.Product, categoryID string) bool {
	if p.CategoryID != nil && *p.CategoryID == categoryID {
		return true
	}
	return m.Links[p.ID][categoryID]
}

func (m *MockProductRepository) matching(f repository.ProductFilter) []*models.Product {
	out := []*models.Product{}
	for _, p := range m.Products {
		if f.CategoryID != "" && !m.inCategory(p, f.CategoryID) {
			continue
		}
		if f.ProductType != "" && p.ProductType != f.ProductType {
			continue
		}
		if f.Availability != "" && p.Availability != f.Availability {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Slug), q) {
				continue
			}
		}
		if f.HasContent != nil && m.WithContent[p.ID] != *f.HasContent {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (m *MockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*models.Product, error) {
	m.LastFilter = filter
	return window(m.matching(filter), filter.Limit, filter.Offset), nil
}

func (m *MockProductRepository) Count(ctx context.Context, filter repository.ProductFilter) (int, error) {
	return len(m.matching(filter)), nil
}

func (m *MockProductRepository) ListAdmin(ctx context.Context, filter repository.ProductFilter) ([]*models.AdminProduct, error) {
	m.LastFilter = filter
	out := []*models.AdminProduct{}
	for _, p := range window(m.matching(filter), filter.Limit, filter.Offset) {
		out = append(out, &models.AdminProduct{Product: *p, HasContent: m.WithContent[p.ID]})
	}
	return out, nil
}

func (m *MockProductRepository) ListRelated(ctx context.Context, product *models.Product, limit int) ([]*models.Product, error) {
	out := []*models.Product{}
	if product.CategoryID == nil {
		return out, nil
	}
	for _, p := range m.matching(repository.ProductFilter{CategoryID: *product.CategoryID}) {
		if p.ID != product.ID {
			out = append(out, p)
		}
	}
	return window(out, limit, 0), nil
}

func (m *MockProductRepository) ListBatch(ctx context.Context, afterID string, limit int) ([]*models.Product, error) {
	out := []*models.Product{}
	for _, p := range m.matching(repository.ProductFilter{}) {
		if p.ID > afterID {
			out = append(out, p)
		}
	}
	return window(out, limit, 0), nil
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return m.Products[id], nil
}

func (m *MockProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	for _, p := range m.matching(repository.ProductFilter{}) {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (m *MockProductRepository) GetBySource(ctx context.Context, source models.ProductSource, sourceID string) (*models.Product, error) {
	for _, p := range m.Products {
		if p.Source == source && p.SourceID != nil && *p.SourceID == sourceID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *MockProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	p, _ := m.GetBySlug(ctx, slug)
	return p != nil, nil
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Products[product.ID] = product
	return nil
}

func (m *MockProductRepository) UpdateFromSource(ctx context.Context, product *models.Product) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.Products[product.ID] = product
	return nil
}

func (m *MockProductRepository) SetCategory(ctx context.Context, productID string, categoryID *string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if p, ok := m.Products[productID]; ok {
		p.CategoryID = categoryID
	}
	return nil
}

func (m *MockProductRepository) LinkCategory(ctx context.Context, productID, categoryID string) (bool, error) {
	if m.Links[productID] == nil {
		m.Links[productID] = make(map[string]bool)
	}
	if m.Links[productID][categoryID] {
		return false, nil
	}
	m.Links[productID][categoryID] = true
	return true, nil
}

func (m *MockProductRepository) ReassignCategory(ctx context.Context, fromID, toID string) (int, error) {
	changed := 0
	for _, p := range m.Products {
		if p.CategoryID != nil && *p.CategoryID == fromID {
			to := toID
			p.CategoryID = &to
			changed++
		}
	}
	for _, links := range m.Links {
		if links[fromID] {
			delete(links, fromID)
			links[toID] = true
			changed++
		}
	}
	return changed, nil
}

// MockProductContentRepository is a mock implementation of ProductContentRepository
type MockProductContentRepository struct {
	Contents    map[string]*models.ProductContent
	UpsertError error
}

var _ repository.ProductContentRepository = (*MockProductContentRepository)(nil)

func NewMockProductContentRepository() *MockProductContentRepository {
	return &MockProductContentRepository{Contents: make(map[string]*models.ProductContent)}
}

func (m *MockProductContentRepository) GetByProductID(ctx context.Context, productID string) (*models.ProductContent, error) {
	return m.Contents[productID], nil
}

func (m *MockProductContentRepository) Upsert(ctx context.Context, content *models.ProductContent) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	if existing, ok := m.Contents[content.ProductID]; ok {
		content.ID = existing.ID
	}
	m.Contents[content.ProductID] = content
	return nil
}

// MockJobRepository is a mock implementation of JobRepository. It is safe
// for concurrent use and stores copies, so callers see only what was written.
type MockJobRepository struct {
	mu          sync.Mutex
	Jobs        map[string]*models.ScrapingJob
	Order       []string
	CreateError error
	UpdateError error
	UpdateCalls int
}

var _ repository.JobRepository = (*MockJobRepository)(nil)

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{Jobs: make(map[string]*models.ScrapingJob)}
}

func copyJob(job *models.ScrapingJob) *models.ScrapingJob {
	c := *job
	c.Metadata = models.JSONMap{}
	for k, v := range job.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.ScrapingJob) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	m.Jobs[job.ID] = copyJob(job)
	m.Order = append(m.Order, job.ID)
	return nil
}

// Update mirrors the real repository: a job carrying the stop marker is never overwritten
func (m *MockJobRepository) Update(ctx context.Context, job *models.ScrapingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored, ok := m.Jobs[job.ID]
	if !ok || stored.Metadata.Bool(models.JobMetaStopped) {
		return nil
	}
	m.Jobs[job.ID] = copyJob(job)
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.ScrapingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	return copyJob(job), nil
}

func (m *MockJobRepository) List(ctx context.Context, limit int) ([]*models.ScrapingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.ScrapingJob{}
	for i := len(m.Order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyJob(m.Jobs[m.Order[i]]))
	}
	return out, nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context, olderThan time.Time) ([]*models.ScrapingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.ScrapingJob{}
	for _, id := range m.Order {
		job := m.Jobs[id]
		if job.Status == models.JobStatusPending && !job.CreatedAt.After(olderThan) {
			out = append(out, copyJob(job))
		}
	}
	return out, nil
}

func (m *MockJobRepository) MarkJobAsRunning(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[jobID]
	if !ok || job.Status != models.JobStatusPending {
		return false, nil
	}
	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	return true, nil
}

func (m *MockJobRepository) MarkJobAsStopped(ctx context.Context, jobID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return false, nil
	}
	job.Status = models.JobStatusFailed
	job.CompletedAt = &at
	job.Metadata[models.JobMetaStopped] = true
	job.Metadata[models.JobMetaStoppedAt] = at.Format(time.RFC3339)
	return true, nil
}

func (m *MockJobRepository) CountByStatus(ctx context.Context) (models.JobStatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := models.JobStatusCounts{}
	for _, s := range models.AllJobStatuses {
		counts[s] = 0
	}
	for _, job := range m.Jobs {
		counts[job.Status]++
	}
	return counts, nil
}
