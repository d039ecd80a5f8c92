package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/models"
)

const productColumns = `p.id, p.name, p.slug, COALESCE(p.description, '') AS description,
	p.product_type, p.price, p.availability, p.category_id, p.source, p.source_id,
	p.source_url, p.images, p.image_url, p.metadata, p.created_at, p.updated_at`

// productRepo is the concrete implementation of ProductRepository
type productRepo struct {
	db *database.DB
}

// NewProductRepo creates a new product repository
func NewProductRepo(db *database.DB) ProductRepository {
	return &productRepo{db: db}
}

// List returns one page of products matching the filter
func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	where, args := filter.where()
	query := `SELECT ` + productColumns + ` FROM products p` + where +
		` ORDER BY p.created_at DESC, p.id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	out := []*models.Product{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

// Count returns the number of products matching the filter, ignoring the page window
func (r *productRepo) Count(ctx context.Context, filter ProductFilter) (int, error) {
	where, args := filter.where()
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM products p`+where), args...)
	return count, err
}

// ListAdmin returns one page of products with their category name and content flag
func (r *productRepo) ListAdmin(ctx context.Context, filter ProductFilter) ([]*models.AdminProduct, error) {
	where, args := filter.where()
	query := `
		SELECT ` + productColumns + `, cat.name AS category_name,
			EXISTS (SELECT 1 FROM product_contents pcn WHERE pcn.product_id = p.id) AS has_content
		FROM products p
		LEFT JOIN categories cat ON cat.id = p.category_id` + where + `
		ORDER BY p.updated_at DESC, p.id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	out := []*models.AdminProduct{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

// ListRelated returns products sharing a category with the given product
func (r *productRepo) ListRelated(ctx context.Context, product *models.Product, limit int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products p
		WHERE p.id <> $1 AND (
			($2::uuid IS NOT NULL AND ` + categoryMembership("$2::uuid") + `)
			OR EXISTS (
				SELECT 1 FROM product_categories a
				JOIN product_categories b ON a.category_id = b.category_id
				WHERE a.product_id = $1 AND b.product_id = p.id))
		ORDER BY p.created_at DESC, p.id
		LIMIT $3
	`
	out := []*models.Product{}
	err := r.db.SelectContext(ctx, &out, query, product.ID, product.CategoryID, limit)
	return out, err
}

// ListBatch returns up to limit products with an id greater than afterID,
// ordered by id, for keyset-paginated batch jobs
func (r *productRepo) ListBatch(ctx context.Context, afterID string, limit int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p
		WHERE p.id::text > $1 ORDER BY p.id::text LIMIT $2`
	out := []*models.Product{}
	err := r.db.SelectContext(ctx, &out, query, afterID, limit)
	return out, err
}

// GetByID retrieves a product by ID
func (r *productRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
}

// GetBySlug retrieves the oldest product with the given slug (slugs are not
// unique at the schema level)
func (r *productRepo) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products p
		WHERE p.slug = $1 ORDER BY p.created_at, p.id LIMIT 1`, slug)
}

// GetBySource retrieves a product by its origin and the origin's identifier
func (r *productRepo) GetBySource(ctx context.Context, source models.ProductSource, sourceID string) (*models.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products p
		WHERE p.source = $1 AND p.source_id = $2`, source, sourceID)
}

// SlugExists checks if a product with the given slug exists
func (r *productRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}

// Create inserts a new product
func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	if product.Images == nil {
		product.Images = []string{}
	}
	if product.Metadata == nil {
		product.Metadata = models.JSONMap{}
	}

	query := `
		INSERT INTO products (id, name, slug, description, product_type, price, availability,
			category_id, source, source_id, source_url, images, image_url, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.Name, product.Slug, product.Description, product.ProductType,
		product.Price, product.Availability, product.CategoryID, product.Source, product.SourceID,
		product.SourceURL, product.Images, product.ImageURL, product.Metadata,
		product.CreatedAt, product.UpdatedAt,
	)
	return err
}

// UpdateFromSource refreshes the fields owned by the import pipeline.
// Slug and category are left untouched.
func (r *productRepo) UpdateFromSource(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	query := `
		UPDATE products SET
			name = $1, description = $2, price = $3, availability = $4, source_url = $5,
			images = $6, image_url = $7, metadata = $8, updated_at = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		product.Name, product.Description, product.Price, product.Availability, product.SourceURL,
		product.Images, product.ImageURL, product.Metadata, product.UpdatedAt, product.ID,
	)
	return err
}

// SetCategory points the legacy category_id at categoryID (nil clears it)
func (r *productRepo) SetCategory(ctx context.Context, productID string, categoryID *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET category_id = $1, updated_at = $2 WHERE id = $3`,
		categoryID, time.Now(), productID,
	)
	return err
}

// LinkCategory adds the many-to-many link, reporting whether it was new
func (r *productRepo) LinkCategory(ctx context.Context, productID, categoryID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, productID, categoryID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ReassignCategory moves every reference to fromID (legacy pointer and join
// table) onto toID in one transaction and returns the number of rows changed
func (r *productRepo) ReassignCategory(ctx context.Context, fromID, toID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	changed := 0
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET category_id = $1, updated_at = $2 WHERE category_id = $3`,
		toID, time.Now(), fromID)
	if err != nil {
		return 0, fmt.Errorf("repoint products: %w", err)
	}
	n, _ := res.RowsAffected()
	changed += int(n)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO product_categories (product_id, category_id)
		SELECT product_id, $1 FROM product_categories WHERE category_id = $2
		ON CONFLICT DO NOTHING`, toID, fromID); err != nil {
		return 0, fmt.Errorf("copy links: %w", err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM product_categories WHERE category_id = $1`, fromID)
	if err != nil {
		return 0, fmt.Errorf("drop links: %w", err)
	}
	n, _ = res.RowsAffected()
	changed += int(n)

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return changed, nil
}

func (r *productRepo) getOne(ctx context.Context, query string, args ...interface{}) (*models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
