package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plant-nursery-api/internal/catalog"
	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/plant-nursery-api/internal/validation"
	"github.com/rs/zerolog"
)

// finalWriteTimeout bounds the terminal status write of a cancelled run
const finalWriteTimeout = 10 * time.Second

// importService is the concrete implementation of ImportService
type importService struct {
	repos         *repository.Repositories
	sources       Sources
	jobService    JobService
	progressEvery int
	log           zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, sources Sources, jobService JobService, cfg config.ImportConfig, log zerolog.Logger) *importService {
	progressEvery := cfg.ProgressEvery
	if progressEvery < 1 {
		progressEvery = 25
	}
	return &importService{
		repos:         repos,
		sources:       sources,
		jobService:    jobService,
		progressEvery: progressEvery,
		log:           log.With().Str("service", "import").Logger(),
	}
}

// CreateJob records a PENDING job and hands it to the job runner. It
// returns as soon as the row exists; the import itself runs in the background.
func (s *importService) CreateJob(ctx context.Context, req *models.ImportJobRequest) (*models.ScrapingJob, error) {
	jobType := req.Type
	if jobType == "" {
		jobType = models.JobTypeFull
	}

	job := &models.ScrapingJob{
		ID:          uuid.New().String(),
		Type:        jobType,
		Status:      models.JobStatusPending,
		UseAPI:      req.UseAPI,
		Categories:  req.Categories,
		MaxProducts: req.MaxProducts,
		Metadata:    models.JSONMap{},
		CreatedAt:   time.Now(),
	}

	source, _, err := s.sources.forJob(job)
	if err != nil {
		return nil, err
	}
	job.Metadata[models.JobMetaSource] = source.Name()

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Bool("use_api", job.UseAPI).
		Strs("categories", job.Categories).
		Msg("Import job created")

	s.jobService.Dispatch(job)
	return job, nil
}

// GetStatus returns the stored job
func (s *importService) GetStatus(ctx context.Context, id string) (*models.ScrapingJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	job, err := s.repos.Job.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return job, nil
}

// runState carries the per-run caches of one import
type runState struct {
	job        *models.ScrapingJob
	origin     models.ProductSource
	validator  *validation.Validator
	categories map[string]*models.Category // by slug
}

// RunJob executes an import. ctx is the job's own context: cancelling it
// (stop or shutdown) ends the run at the next product boundary.
func (s *importService) RunJob(ctx context.Context, job *models.ScrapingJob) error {
	source, origin, err := s.sources.forJob(job)
	if err != nil {
		return s.finish(ctx, job, err)
	}

	startTime := time.Now()
	job.Status = models.JobStatusRunning
	if job.StartedAt == nil {
		job.StartedAt = &startTime
	}
	if job.Metadata == nil {
		job.Metadata = models.JSONMap{}
	}
	job.Metadata[models.JobMetaSource] = source.Name()
	if err := s.repos.Job.Update(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record job start")
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("source", source.Name()).
		Str("type", string(job.Type)).
		Msg("Starting import processing")

	state := &runState{
		job:        job,
		origin:     origin,
		validator:  validation.NewValidator(),
		categories: make(map[string]*models.Category),
	}

	opts := FetchOptions{
		Categories: job.Categories,
		OnSkip: func(ref string, err error) {
			job.ErrorCount++
			s.log.Warn().Err(err).
				Str("job_id", job.ID).
				Str("ref", ref).
				Msg("Partner product unreadable")
		},
	}

	err = source.Fetch(ctx, opts, func(p *models.ScrapedProduct) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if job.MaxProducts != nil && job.ProductsFound >= *job.MaxProducts {
			return ErrStopFetch
		}
		job.ProductsFound++

		if err := s.reconcile(ctx, state, p); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			job.ErrorCount++
			s.log.Warn().Err(err).
				Str("job_id", job.ID).
				Str("source_id", p.SourceID).
				Msg("Failed to import product")
		}

		if job.ProductsFound%s.progressEvery == 0 {
			if err := s.repos.Job.Update(ctx, job); err != nil {
				s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record progress")
			}
		}
		return nil
	})
	if errors.Is(err, ErrStopFetch) {
		err = nil
	}

	job.Metadata["durationMs"] = time.Since(startTime).Milliseconds()
	return s.finish(ctx, job, err)
}

// finish writes the terminal state. A job stopped through the API keeps its
// stop marker; the repository refuses to overwrite it.
func (s *importService) finish(ctx context.Context, job *models.ScrapingJob, runErr error) error {
	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if ctxErr := ctx.Err(); ctxErr != nil && runErr == nil {
		runErr = ctxErr
	}

	if runErr != nil {
		job.Status = models.JobStatusFailed
		msg := runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			msg = "import cancelled"
		}
		job.Error = &msg
		s.log.Error().Err(runErr).Str("job_id", job.ID).Msg("Import failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Int("found", job.ProductsFound).
			Int("created", job.ProductsCreated).
			Int("updated", job.ProductsUpdated).
			Int("skipped", job.ProductsSkipped).
			Int("errors", job.ErrorCount).
			Msg("Import completed")
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()
	if err := s.repos.Job.Update(writeCtx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job result")
	}
	return runErr
}

// reconcile writes one partner product into the catalog
func (s *importService) reconcile(ctx context.Context, state *runState, p *models.ScrapedProduct) error {
	job := state.job

	if errs := state.validator.ValidateScrapedProduct(p); len(errs) > 0 {
		job.ProductsSkipped++
		s.log.Debug().
			Str("job_id", job.ID).
			Str("source_id", p.SourceID).
			Interface("errors", errs).
			Msg("Skipping invalid product")
		return nil
	}

	existing, err := s.repos.Product.GetBySource(ctx, state.origin, p.SourceID)
	if err != nil {
		return fmt.Errorf("lookup product: %w", err)
	}
	if existing != nil && job.Type == models.JobTypeIncremental {
		job.ProductsSkipped++
		return nil
	}

	category, err := s.categoryFor(ctx, state, p.URL)
	if err != nil {
		return err
	}

	if existing == nil {
		product, err := s.newProduct(ctx, state, p, category)
		if err != nil {
			return err
		}
		if err := s.repos.Product.Create(ctx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		job.ProductsCreated++
		existing = product
	} else {
		applyScraped(existing, p)
		if err := s.repos.Product.UpdateFromSource(ctx, existing); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if category != nil && (existing.CategoryID == nil || *existing.CategoryID != category.ID) {
			if err := s.repos.Product.SetCategory(ctx, existing.ID, &category.ID); err != nil {
				return fmt.Errorf("set category: %w", err)
			}
		}
		job.ProductsUpdated++
	}

	if category != nil {
		if _, err := s.repos.Product.LinkCategory(ctx, existing.ID, category.ID); err != nil {
			return fmt.Errorf("link category: %w", err)
		}
	}
	return nil
}

// categoryFor resolves (creating if needed) the category named by the
// product URL; products whose URL carries no category get none
func (s *importService) categoryFor(ctx context.Context, state *runState, productURL string) (*models.Category, error) {
	name, err := catalog.CategoryFromURL(productURL)
	if err != nil {
		return nil, nil
	}
	slug := catalog.Slugify(name)
	if c, ok := state.categories[slug]; ok {
		return c, nil
	}

	c, created, err := s.repos.Category.GetOrCreate(ctx, &models.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        slug,
		Description: fmt.Sprintf(catalog.DefaultCategoryDescription, name),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure category %q: %w", name, err)
	}
	if created {
		s.log.Info().Str("job_id", state.job.ID).Str("category", name).Msg("Category created")
	}
	state.categories[slug] = c
	return c, nil
}

func (s *importService) newProduct(ctx context.Context, state *runState, p *models.ScrapedProduct, category *models.Category) (*models.Product, error) {
	slug := catalog.Slugify(p.Name)
	taken, err := s.repos.Product.SlugExists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if taken || slug == "" {
		slug = strings.Trim(slug+"-"+catalog.Slugify(p.SourceID), "-")
	}

	sourceID := p.SourceID
	product := &models.Product{
		ID:          uuid.New().String(),
		Slug:        slug,
		ProductType: models.ProductTypePhysical,
		Source:      state.origin,
		SourceID:    &sourceID,
		Metadata:    models.JSONMap{},
		CreatedAt:   time.Now(),
	}
	if category != nil {
		product.CategoryID = &category.ID
	}
	applyScraped(product, p)
	return product, nil
}

// applyScraped copies the partner-owned fields onto a product
func applyScraped(product *models.Product, p *models.ScrapedProduct) {
	product.Name = strings.TrimSpace(p.Name)
	product.Description = p.Description
	product.Price = p.Price
	product.Availability = p.Availability
	if product.Availability == "" {
		product.Availability = models.AvailabilityInStock
	}
	if p.URL != "" {
		u := p.URL
		product.SourceURL = &u
	}
	product.Images = append([]string{}, p.Images...)
	product.ImageURL = nil
	if len(p.Images) > 0 {
		img := p.Images[0]
		product.ImageURL = &img
	}

	if product.Metadata == nil {
		product.Metadata = models.JSONMap{}
	}
	if len(p.Specifications) > 0 {
		product.Metadata["specifications"] = p.Specifications
	}
	if len(p.Variants) > 0 {
		product.Metadata["variants"] = p.Variants
	}
	product.Metadata["scrapedAt"] = time.Now().UTC().Format(time.RFC3339)
}
