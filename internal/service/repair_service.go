package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plant-nursery-api/internal/catalog"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/repository"
	"github.com/rs/zerolog"
)

const defaultRepairBatchSize = 200

// RepairOptions controls a category repair run
type RepairOptions struct {
	// DryRun reports what would change without writing
	DryRun    bool
	BatchSize int
}

// RepairReport summarises a category repair run
type RepairReport struct {
	Scanned           int   `json:"scanned"`
	Updated           int   `json:"updated"`
	Unchanged         int   `json:"unchanged"`
	Skipped           int   `json:"skipped"`
	Failed            int   `json:"failed"`
	CategoriesCreated int   `json:"categoriesCreated"`
	OrphansCleared    int   `json:"orphansFixed"`
	DuplicatesMerged  int   `json:"duplicatesMerged"`
	LinksCreated      int   `json:"linksCreated"`
	DryRun            bool  `json:"dryRun"`
	DurationMs        int64 `json:"durationMs"`
}

// repairService is the concrete implementation of RepairService
type repairService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newRepairService creates a new RepairService
func newRepairService(repos *repository.Repositories, log zerolog.Logger) *repairService {
	return &repairService{
		repos: repos,
		log:   log.With().Str("service", "repair").Logger(),
	}
}

// repairRun holds the category index of one run
type repairRun struct {
	opts   RepairOptions
	report *RepairReport
	// byName maps a lowercased category name onto its canonical top-level row
	byName map[string]*models.Category
	exists map[string]bool
}

// RepairCategories re-derives every product's category from its source URL.
// Running it twice on unchanged data changes nothing the second time.
func (s *repairService) RepairCategories(ctx context.Context, opts RepairOptions) (*RepairReport, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRepairBatchSize
	}

	run := &repairRun{
		opts:   opts,
		report: &RepairReport{DryRun: opts.DryRun},
		byName: make(map[string]*models.Category),
		exists: make(map[string]bool),
	}

	s.log.Info().Bool("dry_run", opts.DryRun).Int("batch_size", opts.BatchSize).Msg("Category repair started")

	if err := s.mergeDuplicates(ctx, run); err != nil {
		return nil, fmt.Errorf("merge duplicate categories: %w", err)
	}

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := s.repos.Product.ListBatch(ctx, afterID, opts.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, p := range batch {
			run.report.Scanned++
			if err := s.repairProduct(ctx, run, p); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				run.report.Failed++
				s.log.Warn().Err(err).Str("product_id", p.ID).Msg("Failed to repair product")
			}
		}
		afterID = batch[len(batch)-1].ID
	}

	run.report.DurationMs = time.Since(start).Milliseconds()
	s.log.Info().
		Bool("dry_run", opts.DryRun).
		Int("scanned", run.report.Scanned).
		Int("updated", run.report.Updated).
		Int("unchanged", run.report.Unchanged).
		Int("skipped", run.report.Skipped).
		Int("failed", run.report.Failed).
		Int("categories_created", run.report.CategoriesCreated).
		Int("orphans_fixed", run.report.OrphansCleared).
		Int("duplicates_merged", run.report.DuplicatesMerged).
		Int("links_created", run.report.LinksCreated).
		Msg("Category repair finished")

	return run.report, nil
}

// mergeDuplicates folds categories sharing a name and parent into one
// canonical row, and indexes the top-level categories by name
func (s *repairService) mergeDuplicates(ctx context.Context, run *repairRun) error {
	all, err := s.repos.Category.ListAll(ctx)
	if err != nil {
		return err
	}

	groups := make(map[string][]*models.Category)
	var keys []string
	for _, c := range all {
		run.exists[c.ID] = true
		parent := ""
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		key := parent + "\x00" + strings.ToLower(strings.TrimSpace(c.Name))
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], c)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		canonical := canonicalCategory(group)
		if canonical.ParentID == nil {
			run.byName[strings.ToLower(strings.TrimSpace(canonical.Name))] = canonical
		}

		for _, dup := range group {
			if dup.ID == canonical.ID {
				continue
			}
			if run.opts.DryRun {
				// counted like a real run: only duplicates something points at
				refs, err := s.repos.Product.Count(ctx, repository.ProductFilter{CategoryID: dup.ID})
				if err != nil {
					return fmt.Errorf("count references to %s: %w", dup.ID, err)
				}
				if refs > 0 {
					run.report.DuplicatesMerged++
				}
				continue
			}
			changed, err := s.repos.Product.ReassignCategory(ctx, dup.ID, canonical.ID)
			if err != nil {
				return fmt.Errorf("reassign %s to %s: %w", dup.ID, canonical.ID, err)
			}
			if changed > 0 {
				run.report.DuplicatesMerged++
				s.log.Info().
					Str("from", dup.ID).
					Str("to", canonical.ID).
					Str("name", canonical.Name).
					Int("rows", changed).
					Msg("Merged duplicate category")
			}
		}
	}
	return nil
}

// canonicalCategory picks the row whose slug matches its name, else the
// oldest. Rows arrive ordered by creation time.
func canonicalCategory(group []*models.Category) *models.Category {
	for _, c := range group {
		if c.Slug == catalog.Slugify(c.Name) {
			return c
		}
	}
	return group[0]
}

func (s *repairService) repairProduct(ctx context.Context, run *repairRun, p *models.Product) error {
	sourceURL := ""
	if p.SourceURL != nil {
		sourceURL = *p.SourceURL
	}

	name, err := catalog.CategoryFromURL(sourceURL)
	if err != nil {
		run.report.Skipped++
		if p.CategoryID != nil && !run.exists[*p.CategoryID] {
			run.report.OrphansCleared++
			if !run.opts.DryRun {
				if err := s.repos.Product.SetCategory(ctx, p.ID, nil); err != nil {
					return fmt.Errorf("clear orphaned category: %w", err)
				}
			}
		}
		return nil
	}

	category, err := s.resolveCategory(ctx, run, name)
	if err != nil {
		return err
	}

	if p.CategoryID != nil && *p.CategoryID == category.ID {
		run.report.Unchanged++
	} else {
		run.report.Updated++
		if !run.opts.DryRun {
			if err := s.repos.Product.SetCategory(ctx, p.ID, &category.ID); err != nil {
				return fmt.Errorf("set category: %w", err)
			}
		}
	}

	if run.opts.DryRun {
		return nil
	}
	linked, err := s.repos.Product.LinkCategory(ctx, p.ID, category.ID)
	if err != nil {
		return fmt.Errorf("link category: %w", err)
	}
	if linked {
		run.report.LinksCreated++
	}
	return nil
}

// resolveCategory finds the top-level category called name, creating it
// when absent
func (s *repairService) resolveCategory(ctx context.Context, run *repairRun, name string) (*models.Category, error) {
	key := strings.ToLower(name)
	if c, ok := run.byName[key]; ok {
		return c, nil
	}

	candidate := &models.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        catalog.Slugify(name),
		Description: fmt.Sprintf(catalog.DefaultCategoryDescription, name),
	}

	if run.opts.DryRun {
		run.report.CategoriesCreated++
		run.byName[key] = candidate
		return candidate, nil
	}

	c, created, err := s.repos.Category.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("ensure category %q: %w", name, err)
	}
	if created {
		run.report.CategoriesCreated++
		s.log.Info().Str("category", name).Str("slug", c.Slug).Msg("Category created")
	}
	run.byName[key] = c
	run.exists[c.ID] = true
	return c, nil
}
