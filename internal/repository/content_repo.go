package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plant-nursery-api/internal/database"
	"github.com/plant-nursery-api/internal/models"
)

// productContentRepo is the concrete implementation of ProductContentRepository
type productContentRepo struct {
	db *database.DB
}

// NewProductContentRepo creates a new product content repository
func NewProductContentRepo(db *database.DB) ProductContentRepository {
	return &productContentRepo{db: db}
}

// GetByProductID retrieves the content row of a product
func (r *productContentRepo) GetByProductID(ctx context.Context, productID string) (*models.ProductContent, error) {
	query := `
		SELECT id, product_id, COALESCE(detailed_description, '') AS detailed_description,
			COALESCE(growing_requirements, '') AS growing_requirements,
			COALESCE(care_instructions, '') AS care_instructions,
			COALESCE(uses, '') AS uses, COALESCE(benefits, '') AS benefits, last_updated_at
		FROM product_contents WHERE product_id = $1
	`
	var c models.ProductContent
	err := r.db.GetContext(ctx, &c, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert creates or replaces the content of content.ProductID. The stored id
// is written back to content.
func (r *productContentRepo) Upsert(ctx context.Context, content *models.ProductContent) error {
	query := `
		INSERT INTO product_contents (id, product_id, detailed_description, growing_requirements,
			care_instructions, uses, benefits, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id) DO UPDATE SET
			detailed_description = EXCLUDED.detailed_description,
			growing_requirements = EXCLUDED.growing_requirements,
			care_instructions = EXCLUDED.care_instructions,
			uses = EXCLUDED.uses,
			benefits = EXCLUDED.benefits,
			last_updated_at = EXCLUDED.last_updated_at
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		content.ID, content.ProductID, content.DetailedDescription, content.GrowingRequirements,
		content.CareInstructions, content.Uses, content.Benefits, content.LastUpdatedAt,
	).Scan(&content.ID)
}
