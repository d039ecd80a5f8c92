package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/models"
)

const categoryColumns = `c.id, c.name, c.slug, COALESCE(c.description, '') AS description,
	COALESCE(c.image, '') AS image, c.parent_id, c.created_at, c.updated_at`

// categoryRepo is the concrete implementation of CategoryRepository
type categoryRepo struct {
	db *database.DB
}

// NewCategoryRepo creates a new category repository
func NewCategoryRepo(db *database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

// ListMain returns top-level categories whose name is in names, with the
// number of products reachable through either category relation
func (r *categoryRepo) ListMain(ctx context.Context, names []string) ([]*models.CategoryWithCount, error) {
	query := r.db.Rebind(`
		SELECT ` + categoryColumns + `,
			(SELECT COUNT(*) FROM products p WHERE ` + categoryMembership("c.id") + `) AS product_count
		FROM categories c
		WHERE c.parent_id IS NULL AND c.name = ANY(?)
		ORDER BY c.name, c.created_at
	`)

	var out []*models.CategoryWithCount
	if err := r.db.SelectContext(ctx, &out, query, pq.Array(names)); err != nil {
		return nil, err
	}
	for _, c := range out {
		c.Count.Products = c.ProductCount
	}
	return out, nil
}

// ListAll returns every category ordered by creation time
func (r *categoryRepo) ListAll(ctx context.Context) ([]*models.Category, error) {
	var out []*models.Category
	err := r.db.SelectContext(ctx, &out, `SELECT `+categoryColumns+` FROM categories c ORDER BY c.created_at, c.id`)
	return out, err
}

// GetByID retrieves a category by ID
func (r *categoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id)
}

// GetBySlug retrieves a category by slug
func (r *categoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.slug = $1`, slug)
}

// GetOrCreate inserts the category unless its slug is already taken, and
// returns the stored row plus whether it was created
func (r *categoryRepo) GetOrCreate(ctx context.Context, category *models.Category) (*models.Category, bool, error) {
	now := time.Now()
	query := `
		INSERT INTO categories (id, name, slug, description, image, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $7)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		category.ID, category.Name, category.Slug, category.Description,
		category.Image, category.ParentID, now,
	).Scan(&id)
	created := true
	if errors.Is(err, sql.ErrNoRows) {
		created = false
	} else if err != nil {
		return nil, false, err
	}

	stored, err := r.GetBySlug(ctx, category.Slug)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, errors.New("category vanished after insert")
	}
	return stored, created, nil
}

// Exists checks if a category with the given ID exists
func (r *categoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// Count returns the total number of categories
func (r *categoryRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&count)
	return count, err
}

func (r *categoryRepo) getOne(ctx context.Context, query string, args ...interface{}) (*models.Category, error) {
	var c models.Category
	err := r.db.GetContext(ctx, &c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
