package service

import (
	"context"
	"errors"

	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrJobFinished       = errors.New("job already finished")
	ErrSourceUnavailable = errors.New("import source not configured")
)

// CatalogService defines the interface for catalog reads and edits
type CatalogService interface {
	ListMainCategories(ctx context.Context) ([]*models.CategoryWithCount, error)
	GetMainCategory(ctx context.Context, slug string, page Page) (*CategoryDetail, error)
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	ListAdminProducts(ctx context.Context, query ProductQuery) (*AdminProductPage, error)
	GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error)
	ListRelated(ctx context.Context, idOrSlug string, limit int) ([]*models.Product, error)
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetContent(ctx context.Context, productID string) (*models.ProductContent, error)
	UpsertContent(ctx context.Context, productID string, req *models.ProductContentRequest) (*models.ProductContent, error)
	Stats(ctx context.Context) (*CatalogStats, error)
}

// ImportService creates and executes partner catalog imports
type ImportService interface {
	CreateJob(ctx context.Context, req *models.ImportJobRequest) (*models.ScrapingJob, error)
	RunJob(ctx context.Context, job *models.ScrapingJob) error
	GetStatus(ctx context.Context, id string) (*models.ScrapingJob, error)
}

// JobService runs import jobs in the background and controls their lifecycle
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	Dispatch(job *models.ScrapingJob)
	StopJob(ctx context.Context, id string) (*models.ScrapingJob, error)
	GetJob(ctx context.Context, id string) (*models.ScrapingJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.ScrapingJob, error)
	CountByStatus(ctx context.Context) (models.JobStatusCounts, error)
	IsActive(id string) bool
	SetImportService(importService ImportService)
}

// RepairService re-derives product categories and heals bad references
type RepairService interface {
	RepairCategories(ctx context.Context, opts RepairOptions) (*RepairReport, error)
}

// Services holds all service interfaces
type Services struct {
	Catalog CatalogService
	Import  ImportService
	Job     JobService
	Repair  RepairService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, sources Sources, cfg *config.Config, log zerolog.Logger) *Services {
	jobSvc := newJobService(repos.Job, cfg.Import, log)
	importSvc := newImportService(repos, sources, jobSvc, cfg.Import, log)

	// Wire up job runner to import service
	jobSvc.SetImportService(importSvc)

	return &Services{
		Catalog: newCatalogService(repos, log),
		Import:  importSvc,
		Job:     jobSvc,
		Repair:  newRepairService(repos, log),
	}
}
