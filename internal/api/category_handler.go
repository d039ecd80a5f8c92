package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plant-nursery-api/internal/service"
	"github.com/rs/zerolog"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(services *service.Services, log zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		services: services,
		log:      log.With().Str("handler", "category").Logger(),
	}
}

// ListCategories handles GET /api/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.services.Catalog.ListMainCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Categories not found")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory handles GET /api/categories/:slug
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	detail, err := h.services.Catalog.GetMainCategory(c.Request.Context(), c.Param("slug"), pageFromQuery(c))
	if err != nil {
		respondError(c, h.log, err, "Category not found")
		return
	}
	c.JSON(http.StatusOK, detail)
}
