package models

import (
	"time"

	"github.com/lib/pq"
)

// JobStatus represents the status of a scraping job.
// PENDING → RUNNING → COMPLETED | FAILED; stop forces FAILED.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// AllJobStatuses lists every status, in lifecycle order
var AllJobStatuses = []JobStatus{JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed}

// JobType selects how much of the partner catalog an import walks
type JobType string

const (
	JobTypeFull        JobType = "FULL"
	JobTypeIncremental JobType = "INCREMENTAL"
)

// Metadata keys written onto a job
const (
	JobMetaStopped   = "stopped"
	JobMetaStoppedAt = "stoppedAt"
	JobMetaSource    = "source"
)

// ScrapingJob represents one run of the partner catalog import
type ScrapingJob struct {
	ID              string         `json:"id" db:"id"`
	Type            JobType        `json:"type" db:"type"`
	Status          JobStatus      `json:"status" db:"status"`
	UseAPI          bool           `json:"useApi" db:"use_api"`
	Categories      pq.StringArray `json:"categories" db:"categories"`
	MaxProducts     *int           `json:"maxProducts,omitempty" db:"max_products"`
	ProductsFound   int            `json:"productsFound" db:"products_found"`
	ProductsCreated int            `json:"productsCreated" db:"products_created"`
	ProductsUpdated int            `json:"productsUpdated" db:"products_updated"`
	ProductsSkipped int            `json:"productsSkipped" db:"products_skipped"`
	ErrorCount      int            `json:"errorCount" db:"error_count"`
	Error           *string        `json:"error,omitempty" db:"error"`
	Metadata        JSONMap        `json:"metadata" db:"metadata"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
	StartedAt       *time.Time     `json:"startedAt,omitempty" db:"started_at"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty" db:"completed_at"`
}

// ImportJobRequest represents an import job request
type ImportJobRequest struct {
	Type        JobType  `json:"type" validate:"omitempty,oneof=FULL INCREMENTAL"`
	UseAPI      bool     `json:"useApi"`
	Categories  []string `json:"categories" validate:"omitempty,max=50,dive,required,slug"`
	MaxProducts *int     `json:"maxProducts" validate:"omitempty,min=1,max=100000"`
}

// JobStatusCounts maps each status to the number of jobs in it
type JobStatusCounts map[JobStatus]int
