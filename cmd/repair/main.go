// Command repair re-derives product categories from their source URLs,
// creates missing categories, heals orphaned references and merges
// duplicate category names.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/plant-nursery-api/internal/service"
	"github.com/plant-nursery-api/pkg/logger"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report changes without writing them")
	batchSize := flag.Int("batch-size", 0, "products read per batch (0 uses the default)")
	migrate := flag.Bool("migrate", false, "apply pending migrations first")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrate {
		if err := db.RunMigrations(&cfg.Database); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// no import sources: only the repair service is used here
	services := service.NewServices(repository.New(db), service.Sources{}, cfg, log)

	report, err := services.Repair.RepairCategories(ctx, service.RepairOptions{
		DryRun:    *dryRun,
		BatchSize: *batchSize,
	})
	if err != nil {
		log.Error().Err(err).Msg("Category repair failed")
		os.Exit(1)
	}

	log.Info().
		Bool("dry_run", report.DryRun).
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("unchanged", report.Unchanged).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("categories_created", report.CategoriesCreated).
		Int("orphans_fixed", report.OrphansCleared).
		Int("duplicates_merged", report.DuplicatesMerged).
		Int("links_created", report.LinksCreated).
		Int64("duration_ms", report.DurationMs).
		Msg("Category repair finished")

	if report.Failed > 0 {
		os.Exit(2)
	}
}
