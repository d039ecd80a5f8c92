package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/plant-nursery-api/internal/api"
	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/plantmark"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/plant-nursery-api/internal/service"
	"github.com/plant-nursery-api/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting Plant Nursery API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(&cfg.Database); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Partner catalog sources
	client := plantmark.NewClient(cfg.Plantmark, log)
	sources := service.Sources{Scrape: plantmark.NewScrapeSource(client)}
	if cfg.Plantmark.APIURL != "" && cfg.Plantmark.APIKey != "" {
		sources.API = plantmark.NewAPISource(client, cfg.Plantmark)
	} else {
		log.Warn().Msg("Plantmark API not configured, API imports disabled")
	}

	// Initialize services
	services := service.NewServices(repos, sources, cfg, log)

	// Start background job processor
	go services.Job.StartProcessor(context.Background())
	log.Info().Msg("Background job processor started")

	// Scheduled category repair
	scheduler, err := startRepairSchedule(cfg.Repair, services.Repair, log)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Repair.Schedule).Msg("Invalid repair schedule")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, log, db)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	// Stop job processor; running imports are cancelled and marked failed
	services.Job.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// startRepairSchedule runs the category repair on cfg.Schedule. An empty
// schedule returns a nil scheduler.
func startRepairSchedule(cfg config.RepairConfig, repair service.RepairService, log zerolog.Logger) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		return nil, nil
	}

	log = log.With().Str("component", "repair_schedule").Logger()
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(cfg.Schedule, func() {
		report, err := repair.RepairCategories(context.Background(), service.RepairOptions{})
		if err != nil {
			log.Error().Err(err).Msg("Scheduled category repair failed")
			return
		}
		log.Info().
			Int("scanned", report.Scanned).
			Int("updated", report.Updated).
			Int("categories_created", report.CategoriesCreated).
			Int("orphans_fixed", report.OrphansCleared).
			Int("failed", report.Failed).
			Msg("Scheduled category repair finished")
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("Category repair scheduled")
	return c, nil
}
