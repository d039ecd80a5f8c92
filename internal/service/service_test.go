package service_test

import (
	"testing"
	"time"

	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/mocks"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/plant-nursery-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// testEnv bundles the services under test with the mocks behind them
type testEnv struct {
	services   *service.Services
	categories *mocks.MockCategoryRepository
	products   *mocks.MockProductRepository
	contents   *mocks.MockProductContentRepository
	jobs       *mocks.MockJobRepository
	scrape     *mocks.MockSource
	api        *mocks.MockSource
}

func newTestEnv(t *testing.T, withAPI bool) *testEnv {
	t.Helper()

	env := &testEnv{
		categories: mocks.NewMockCategoryRepository(),
		products:   mocks.NewMockProductRepository(),
		contents:   mocks.NewMockProductContentRepository(),
		jobs:       mocks.NewMockJobRepository(),
		scrape:     mocks.NewMockSource("plantmark-scrape"),
	}
	sources := service.Sources{Scrape: env.scrape}
	if withAPI {
		env.api = mocks.NewMockSource("plantmark-api")
		sources.API = env.api
	}

	repos := &repository.Repositories{
		Category: env.categories,
		Product:  env.products,
		Content:  env.contents,
		Job:      env.jobs,
	}
	cfg := &config.Config{
		Import: config.ImportConfig{MaxWorkers: 2, ProgressEvery: 1, SweepInterval: time.Hour},
	}
	env.services = service.NewServices(repos, sources, cfg, zerolog.Nop())
	t.Cleanup(env.services.Job.StopProcessor)
	return env
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func category(id, name, slug string) *models.Category {
	return &models.Category{ID: id, Name: name, Slug: slug, CreatedAt: time.Now()}
}

func product(id, slug string, categoryID *string) *models.Product {
	return &models.Product{
		ID:           id,
		Name:         slug,
		Slug:         slug,
		ProductType:  models.ProductTypePhysical,
		Availability: models.AvailabilityInStock,
		CategoryID:   categoryID,
		Source:       models.ProductSourceManual,
		Metadata:     models.JSONMap{},
		CreatedAt:    time.Now(),
	}
}

func scraped(sourceID, name, url string) *models.ScrapedProduct {
	return &models.ScrapedProduct{
		SourceID:     sourceID,
		Name:         name,
		URL:          url,
		Price:        decimal.RequireFromString("24.95"),
		Availability: models.AvailabilityInStock,
		Images:       []string{"https://cdn.example.com/" + sourceID + ".jpg"},
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}
