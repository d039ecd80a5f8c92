package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
	"github.com/plant-nursery-api/internal/validation"
	"github.com/rs/zerolog"
)

// ImportJobHandler handles import job endpoints
type ImportJobHandler struct {
	services  *service.Services
	validator *validation.Validator
	log       zerolog.Logger
}

// NewImportJobHandler creates a new ImportJobHandler
func NewImportJobHandler(services *service.Services, log zerolog.Logger) *ImportJobHandler {
	return &ImportJobHandler{
		services:  services,
		validator: validation.NewValidator(),
		log:       log.With().Str("handler", "import_job").Logger(),
	}
}

// CreateJob handles POST /api/admin/import-jobs.
// Responds 202 once the job row exists; the import runs in the background.
func (h *ImportJobHandler) CreateJob(c *gin.Context) {
	var req models.ImportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadBody(c, err)
		return
	}
	if errs := h.validator.ValidateImportRequest(&req); len(errs) > 0 {
		respondValidation(c, errs)
		return
	}

	job, err := h.services.Import.CreateJob(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err, "Import job not found")
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Bool("use_api", job.UseAPI).
		Msg("Import job accepted")

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":   job.ID,
		"status":  job.Status,
		"message": "Import job created and queued for processing",
	})
}

// ListJobs handles GET /api/admin/import-jobs and its public variant
func (h *ImportJobHandler) ListJobs(c *gin.Context) {
	limit, _ := queryInt(c, "limit", 20)
	jobs, err := h.services.Job.ListJobs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err, "Import jobs not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob handles GET /api/admin/import-jobs/:id and its public variant
func (h *ImportJobHandler) GetJob(c *gin.Context) {
	job, err := h.services.Job.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Import job not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job":    job,
		"active": h.services.Job.IsActive(job.ID),
	})
}

// StopJob handles POST /api/admin/import-jobs/:id/stop.
// 404 for unknown jobs, 409 when the job already finished.
func (h *ImportJobHandler) StopJob(c *gin.Context) {
	job, err := h.services.Job.StopJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err, "Import job not found")
		return
	}

	h.log.Info().Str("job_id", job.ID).Msg("Import job stopped")
	c.JSON(http.StatusOK, gin.H{
		"message": "Import job stopped",
		"job":     job,
	})
}
