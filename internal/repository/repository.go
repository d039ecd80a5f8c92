package repository

import (
	"context"
	"time"

	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/models"
)

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	ListMain(ctx context.Context, names []string) ([]*models.CategoryWithCount, error)
	ListAll(ctx context.Context) ([]*models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetOrCreate(ctx context.Context, category *models.Category) (*models.Category, bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// ProductRepository defines the interface for product data operations
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
	ListAdmin(ctx context.Context, filter ProductFilter) ([]*models.AdminProduct, error)
	ListRelated(ctx context.Context, product *models.Product, limit int) ([]*models.Product, error)
	ListBatch(ctx context.Context, afterID string, limit int) ([]*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetBySource(ctx context.Context, source models.ProductSource, sourceID string) (*models.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	UpdateFromSource(ctx context.Context, product *models.Product) error
	SetCategory(ctx context.Context, productID string, categoryID *string) error
	LinkCategory(ctx context.Context, productID, categoryID string) (bool, error)
	ReassignCategory(ctx context.Context, fromID, toID string) (int, error)
}

// ProductContentRepository defines the interface for product content operations
type ProductContentRepository interface {
	GetByProductID(ctx context.Context, productID string) (*models.ProductContent, error)
	Upsert(ctx context.Context, content *models.ProductContent) error
}

// JobRepository defines the interface for scraping job operations
type JobRepository interface {
	Create(ctx context.Context, job *models.ScrapingJob) error
	Update(ctx context.Context, job *models.ScrapingJob) error
	GetByID(ctx context.Context, id string) (*models.ScrapingJob, error)
	List(ctx context.Context, limit int) ([]*models.ScrapingJob, error)
	GetPendingJobs(ctx context.Context, olderThan time.Time) ([]*models.ScrapingJob, error)
	MarkJobAsRunning(ctx context.Context, jobID string) (bool, error)
	MarkJobAsStopped(ctx context.Context, jobID string, at time.Time) (bool, error)
	CountByStatus(ctx context.Context) (models.JobStatusCounts, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Category CategoryRepository
	Product  ProductRepository
	Content  ProductContentRepository
	Job      JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Category: NewCategoryRepo(db),
		Product:  NewProductRepo(db),
		Content:  NewProductContentRepo(db),
		Job:      NewJobRepo(db),
	}
}
