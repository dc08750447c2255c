package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const feeCategoryColumns = `id, school_id, name, description, is_mandatory, is_recurring, category_type, created_at, updated_at`

// FeeCategoryRepository persists fee categories.
type FeeCategoryRepository struct {
	db *sqlx.DB
}

// NewFeeCategoryRepository instantiates a fee category repository.
func NewFeeCategoryRepository(db *sqlx.DB) *FeeCategoryRepository {
	return &FeeCategoryRepository{db: db}
}

// List returns every category of the school, tuition first.
func (r *FeeCategoryRepository) List(ctx context.Context, schoolID string) ([]models.FeeCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_categories WHERE school_id = $1 ORDER BY category_type DESC, name`, feeCategoryColumns)
	var categories []models.FeeCategory
	if err := r.db.SelectContext(ctx, &categories, query, schoolID); err != nil {
		return nil, fmt.Errorf("list fee categories: %w", err)
	}
	return categories, nil
}

// FindByIDs loads the categories of the school among ids.
func (r *FeeCategoryRepository) FindByIDs(ctx context.Context, schoolID string, ids []string) ([]models.FeeCategory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM fee_categories WHERE school_id = $1 AND id = ANY($2)`, feeCategoryColumns)
	var categories []models.FeeCategory
	if err := r.db.SelectContext(ctx, &categories, query, schoolID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find fee categories: %w", err)
	}
	return categories, nil
}

// FindByID returns sql.ErrNoRows when the category does not belong to the school.
func (r *FeeCategoryRepository) FindByID(ctx context.Context, schoolID, id string) (*models.FeeCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_categories WHERE school_id = $1 AND id = $2`, feeCategoryColumns)
	var category models.FeeCategory
	if err := r.db.GetContext(ctx, &category, query, schoolID, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a category.
func (r *FeeCategoryRepository) Create(ctx context.Context, category *models.FeeCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO fee_categories (id, school_id, name, description, is_mandatory, is_recurring, category_type, created_at, updated_at) VALUES (:id, :school_id, :name, :description, :is_mandatory, :is_recurring, :category_type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create fee category: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of a category.
func (r *FeeCategoryRepository) Update(ctx context.Context, category *models.FeeCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_categories SET name = :name, description = :description, is_mandatory = :is_mandatory, is_recurring = :is_recurring, category_type = :category_type, updated_at = :updated_at WHERE school_id = :school_id AND id = :id`
	res, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		return fmt.Errorf("update fee category: %w", err)
	}
	return requireAffected(res)
}
