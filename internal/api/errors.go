package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plant-nursery-api/internal/service"
	"github.com/plant-nursery-api/internal/validation"
	"github.com/rs/zerolog"
)

// respondError maps a service error onto the HTTP error taxonomy. Causes of
// 500s are logged and never sent to the client.
func respondError(c *gin.Context, log zerolog.Logger, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrJobFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "Job has already finished"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSourceUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requested import source is not configured"})
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// respondValidation writes a 400 with per-field details
func respondValidation(c *gin.Context, errs []validation.ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Validation failed",
		"details": errs,
	})
}

// respondBadBody writes a 400 for a body that is not valid JSON for the endpoint
func respondBadBody(c *gin.Context, err error) {
	respondValidation(c, []validation.ValidationError{{Field: "body", Message: err.Error()}})
}

// queryInt reads an integer query parameter; absent or malformed values
// yield def, and ok reports whether the parameter was given at all
func queryInt(c *gin.Context, key string, def int) (value int, ok bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return def, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, false
	}
	return n, true
}

// pageFromQuery accepts both page/limit and offset/limit; offset wins when given
func pageFromQuery(c *gin.Context) service.Page {
	limit, _ := queryInt(c, "limit", service.DefaultPageSize)
	page, _ := queryInt(c, "page", 1)
	offset, useOffset := queryInt(c, "offset", 0)
	return service.NewPage(page, offset, limit, useOffset)
}
