package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/models"
)

const jobColumns = `id, type, status, use_api, categories, max_products, products_found,
	products_created, products_updated, products_skipped, error_count, error, metadata,
	created_at, updated_at, started_at, completed_at`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.ScrapingJob) error {
	if job.Metadata == nil {
		job.Metadata = models.JSONMap{}
	}
	if job.Categories == nil {
		job.Categories = []string{}
	}
	query := `
		INSERT INTO scraping_jobs (id, type, status, use_api, categories, max_products, metadata,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Type, job.Status, job.UseAPI, job.Categories, job.MaxProducts,
		job.Metadata, job.CreatedAt,
	)
	return err
}

// Update writes status, counters and timestamps. A job that was stopped
// (status FAILED with the stop marker) is never overwritten by a late
// progress write from its worker.
func (r *jobRepo) Update(ctx context.Context, job *models.ScrapingJob) error {
	job.UpdatedAt = time.Now()
	query := `
		UPDATE scraping_jobs SET
			status = $1, products_found = $2, products_created = $3, products_updated = $4,
			products_skipped = $5, error_count = $6, error = $7, metadata = $8,
			updated_at = $9, started_at = $10, completed_at = $11
		WHERE id = $12 AND NOT (metadata ? 'stopped')
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.ProductsFound, job.ProductsCreated, job.ProductsUpdated,
		job.ProductsSkipped, job.ErrorCount, job.Error, job.Metadata,
		job.UpdatedAt, job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.ScrapingJob, error) {
	var job models.ScrapingJob
	err := r.db.GetContext(ctx, &job, `SELECT `+jobColumns+` FROM scraping_jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns the most recent jobs first
func (r *jobRepo) List(ctx context.Context, limit int) ([]*models.ScrapingJob, error) {
	out := []*models.ScrapingJob{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+jobColumns+` FROM scraping_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	return out, err
}

// GetPendingJobs retrieves pending jobs created before olderThan
func (r *jobRepo) GetPendingJobs(ctx context.Context, olderThan time.Time) ([]*models.ScrapingJob, error) {
	out := []*models.ScrapingJob{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+jobColumns+` FROM scraping_jobs
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at`, olderThan)
	return out, err
}

// MarkJobAsRunning atomically claims a pending job
func (r *jobRepo) MarkJobAsRunning(ctx context.Context, jobID string) (bool, error) {
	now := time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE scraping_jobs SET status = 'RUNNING', started_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'PENDING'`, now, jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// MarkJobAsStopped forces a non-terminal job to FAILED with the stop marker.
// It reports false when the job is already COMPLETED or FAILED.
func (r *jobRepo) MarkJobAsStopped(ctx context.Context, jobID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE scraping_jobs SET
			status = 'FAILED',
			completed_at = $1,
			updated_at = $1,
			metadata = metadata || jsonb_build_object('stopped', true, 'stoppedAt', $1::timestamptz)
		WHERE id = $2 AND status IN ('PENDING', 'RUNNING')`, at, jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CountByStatus returns the number of jobs in each status
func (r *jobRepo) CountByStatus(ctx context.Context) (models.JobStatusCounts, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM scraping_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := models.JobStatusCounts{}
	for _, s := range models.AllJobStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status models.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
