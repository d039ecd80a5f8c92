package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plant-nursery-api/internal/service"
	"github.com/rs/zerolog"
)

// RepairHandler exposes the category repair to admins
type RepairHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRepairHandler creates a new RepairHandler
func NewRepairHandler(services *service.Services, log zerolog.Logger) *RepairHandler {
	return &RepairHandler{
		services: services,
		log:      log.With().Str("handler", "repair").Logger(),
	}
}

// RepairCategories handles POST /api/admin/maintenance/repair-categories?dryRun=true
func (h *RepairHandler) RepairCategories(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dryRun"))
	batchSize, _ := queryInt(c, "batchSize", 0)

	report, err := h.services.Repair.RepairCategories(c.Request.Context(), service.RepairOptions{
		DryRun:    dryRun,
		BatchSize: batchSize,
	})
	if err != nil {
		respondError(c, h.log, err, "Nothing to repair")
		return
	}
	c.JSON(http.StatusOK, report)
}
