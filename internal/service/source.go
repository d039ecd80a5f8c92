package service

import (
	"context"
	"errors"

	"github.com/plant-nursery-api/internal/models"
)

// ErrStopFetch is returned by a visit function to end a fetch early without error
var ErrStopFetch = errors.New("stop fetch")

// FetchOptions restricts what a Source walks
type FetchOptions struct {
	// Partner category slugs; empty means the whole catalog
	Categories []string
	// OnSkip, when set, is told about a product the source could not read.
	// ref is the product URL or id. The fetch carries on after it.
	OnSkip func(ref string, err error)
}

// Skipped reports a product the source gave up on
func (o FetchOptions) Skipped(ref string, err error) {
	if o.OnSkip != nil {
		o.OnSkip(ref, err)
	}
}

// Source streams products from the partner catalog. Implementations must
// return ctx.Err() promptly once ctx is cancelled, and must stop (returning
// the visit error) as soon as visit returns an error. A single product that
// cannot be read is reported through FetchOptions.Skipped, not returned.
type Source interface {
	Name() string
	Fetch(ctx context.Context, opts FetchOptions, visit func(*models.ScrapedProduct) error) error
}

// Sources are the adapters selected by an import job's useApi flag.
// API may be nil when no API credentials are configured.
type Sources struct {
	Scrape Source
	API    Source
}

func (s Sources) forJob(job *models.ScrapingJob) (Source, models.ProductSource, error) {
	if job.UseAPI {
		if s.API == nil {
			return nil, "", ErrSourceUnavailable
		}
		return s.API, models.ProductSourceAPI, nil
	}
	if s.Scrape == nil {
		return nil, "", ErrSourceUnavailable
	}
	return s.Scrape, models.ProductSourceScraped, nil
}
