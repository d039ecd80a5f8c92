package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/rs/zerolog"
)

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo       repository.JobRepository
	importService ImportService
	log           zerolog.Logger
	sweepInterval time.Duration

	// base is the parent of every job context; cancelling it stops all work
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	// handles holds the cancel function of every dispatched job that has not finished
	handles map[string]context.CancelFunc

	// Semaphore: buffered channel limiting concurrent imports
	sem chan struct{}
}

// newJobService creates a new JobService with a worker pool sized from config.
// Imports are throttled by the partner site, so the pool stays small.
func newJobService(jobRepo repository.JobRepository, cfg config.ImportConfig, log zerolog.Logger) *jobService {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 30 * time.Second
	}

	log.Info().Int("max_workers", maxWorkers).Msg("Initializing import job worker pool")

	base, cancel := context.WithCancel(context.Background())
	return &jobService{
		jobRepo:       jobRepo,
		log:           log.With().Str("service", "job").Logger(),
		sweepInterval: sweep,
		base:          base,
		cancel:        cancel,
		handles:       make(map[string]context.CancelFunc),
		sem:           make(chan struct{}, maxWorkers),
	}
}

// SetImportService sets the import service for job processing
func (s *jobService) SetImportService(importService ImportService) {
	s.importService = importService
}

// Dispatch schedules a job on the worker pool and returns immediately.
// A job that is already in flight is ignored.
func (s *jobService) Dispatch(job *models.ScrapingJob) {
	// The caller keeps its copy; the worker mutates its own.
	j := *job
	j.Metadata = models.JSONMap{}
	for k, v := range job.Metadata {
		j.Metadata[k] = v
	}

	s.mu.Lock()
	if _, busy := s.handles[j.ID]; busy {
		s.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(s.base)
	s.handles[j.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.release(j.ID)

		// Acquire semaphore slot - waits while all workers are busy
		select {
		case s.sem <- struct{}{}:
		case <-jobCtx.Done():
			s.log.Warn().Str("job_id", j.ID).Msg("Job cancelled before it started")
			return
		}
		defer func() { <-s.sem }()

		// Claim atomically; a stopped or already claimed job is left alone
		claimed, err := s.jobRepo.MarkJobAsRunning(jobCtx, j.ID)
		if err != nil {
			s.log.Error().Err(err).Str("job_id", j.ID).Msg("Failed to claim job")
			return
		}
		if !claimed {
			s.log.Debug().Str("job_id", j.ID).Msg("Job no longer pending, skipping")
			return
		}

		// Panic recovery - a broken page must not take the server down
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().
					Interface("panic", r).
					Str("job_id", j.ID).
					Msg("Job processing panicked - recovered")
				msg := fmt.Sprintf("internal error: %v", r)
				now := time.Now()
				j.Status = models.JobStatusFailed
				j.Error = &msg
				j.CompletedAt = &now
				writeCtx, cancel := context.WithTimeout(context.Background(), finalWriteTimeout)
				defer cancel()
				if err := s.jobRepo.Update(writeCtx, &j); err != nil {
					s.log.Error().Err(err).Str("job_id", j.ID).Msg("Failed to mark panicked job as failed")
				}
			}
		}()

		s.processJob(jobCtx, &j)
	}()
}

// release drops the cancel handle of a finished job
func (s *jobService) release(id string) {
	s.mu.Lock()
	cancel, ok := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// processJob runs a single claimed job
func (s *jobService) processJob(ctx context.Context, job *models.ScrapingJob) {
	if s.importService == nil {
		s.log.Error().Str("job_id", job.ID).Msg("No import service configured")
		return
	}

	s.log.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("Processing job")

	if err := s.importService.RunJob(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import processing failed")
	}
}

// StartProcessor starts the sweeper that picks up PENDING jobs left behind
// by a restart. It blocks until ctx is cancelled or StopProcessor is called.
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.sweepInterval).Msg("Job processor started")

	s.processPendingJobs()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Job processor stopping")
			return
		case <-s.base.Done():
			s.log.Info().Msg("Job processor stopping")
			return
		case <-ticker.C:
			s.processPendingJobs()
		}
	}
}

// StopProcessor cancels every in-flight job and waits for the workers to exit
func (s *jobService) StopProcessor() {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.log.Info().Msg("Job processor stopped")
}

// processPendingJobs dispatches jobs that have been PENDING for longer than
// one sweep interval; fresher ones are still on their way through Dispatch
func (s *jobService) processPendingJobs() {
	jobs, err := s.jobRepo.GetPendingJobs(s.base, time.Now().Add(-s.sweepInterval))
	if err != nil {
		if s.base.Err() == nil {
			s.log.Error().Err(err).Msg("Failed to get pending jobs")
		}
		return
	}

	for _, job := range jobs {
		s.Dispatch(job)
	}
}

// StopJob forces a job to FAILED with a stop marker and cancels its worker
func (s *jobService) StopJob(ctx context.Context, id string) (*models.ScrapingJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, ErrJobFinished
	}

	stopped, err := s.jobRepo.MarkJobAsStopped(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	if !stopped {
		// Finished between the read and the update
		return nil, ErrJobFinished
	}

	s.mu.Lock()
	cancel, ok := s.handles[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	s.log.Info().Str("job_id", id).Bool("was_active", ok).Msg("Job stopped")

	return s.jobRepo.GetByID(ctx, id)
}

// IsActive reports whether a worker currently holds the job
func (s *jobService) IsActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[id]
	return ok
}

// GetJob retrieves a job by ID
func (s *jobService) GetJob(ctx context.Context, id string) (*models.ScrapingJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return job, nil
}

// ListJobs returns the most recent jobs first
func (s *jobService) ListJobs(ctx context.Context, limit int) ([]*models.ScrapingJob, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.jobRepo.List(ctx, limit)
}

// CountByStatus returns the number of jobs per status
func (s *jobService) CountByStatus(ctx context.Context) (models.JobStatusCounts, error) {
	return s.jobRepo.CountByStatus(ctx)
}
