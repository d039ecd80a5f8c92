package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/service"
	"github.com/rs/zerolog"
)

const serviceName = "plant-nursery-api"

// DBProbe reports database liveness and pool usage
type DBProbe interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// NewRouter creates and configures the Gin router. db may be nil.
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, db DBProbe) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	categoryHandler := NewCategoryHandler(services, log)
	productHandler := NewProductHandler(services, log)
	importJobHandler := NewImportJobHandler(services, log)
	repairHandler := NewRepairHandler(services, log)

	adminAuth := AdminAuth(cfg.Admin.APIKey, cfg.Admin.PublicPathMarkers)

	// Health check
	router.GET("/health", healthCheck(db, log))
	router.GET("/metrics", metricsHandler(services, db, log))

	apiGroup := router.Group("/api")
	{
		categories := apiGroup.Group("/categories")
		{
			categories.GET("", categoryHandler.ListCategories)
			categories.GET("/:slug", categoryHandler.GetCategory)
		}

		products := apiGroup.Group("/products")
		{
			products.GET("", productHandler.ListProducts)
			products.POST("", adminAuth, productHandler.CreateProduct)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/related", productHandler.ListRelated)
		}

		admin := apiGroup.Group("/admin", adminAuth)
		{
			adminProducts := admin.Group("/products")
			{
				adminProducts.GET("", productHandler.ListAdminProducts)
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.GET("/:id/content", productHandler.GetContent)
				adminProducts.POST("/:id/content", productHandler.UpsertContent)
			}

			jobs := admin.Group("/import-jobs")
			{
				jobs.POST("", importJobHandler.CreateJob)
				jobs.GET("", importJobHandler.ListJobs)
				jobs.GET("/public", importJobHandler.ListJobs)
				jobs.GET("/:id", importJobHandler.GetJob)
				jobs.GET("/:id/public", importJobHandler.GetJob)
				jobs.POST("/:id/stop", importJobHandler.StopJob)
			}

			admin.POST("/maintenance/repair-categories", repairHandler.RepairCategories)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(db DBProbe, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				log.Error().Err(err).Msg("Database health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"timestamp": time.Now().Format(time.RFC3339),
					"service":   serviceName,
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   serviceName,
		})
	}
}

// metricsHandler returns catalog and import job counts
func metricsHandler(services *service.Services, db DBProbe, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := services.Catalog.Stats(c.Request.Context())
		if err != nil {
			respondError(c, log, err, "Metrics unavailable")
			return
		}

		database := gin.H{
			"categories": stats.Categories,
			"products":   stats.Products,
		}
		if db != nil {
			pool := db.Stats()
			database["open_connections"] = pool.OpenConnections
			database["in_use"] = pool.InUse
			database["idle"] = pool.Idle
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  database,
			"jobs":      stats.Jobs,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+APIKeyHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
