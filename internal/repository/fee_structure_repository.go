package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const feeStructureColumns = `id, school_id, academic_year_id, name, grade_level, applies_to, program_type, currency, total_amount, is_active, is_published, created_by, created_at, updated_at`

// FeeStructureRepository persists fee structures and their items.
type FeeStructureRepository struct {
	db *sqlx.DB
}

// NewFeeStructureRepository instantiates a fee structure repository.
func NewFeeStructureRepository(db *sqlx.DB) *FeeStructureRepository {
	return &FeeStructureRepository{db: db}
}

func (r *FeeStructureRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns a page of structures and the total count.
func (r *FeeStructureRepository) List(ctx context.Context, schoolID string, filter models.StructureFilter) ([]models.FeeStructure, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)))
	}
	if filter.GradeLevel != "" {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	_, size, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM fee_structures%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, feeStructureColumns, where, size, offset)

	var structures []models.FeeStructure
	if err := r.db.SelectContext(ctx, &structures, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee structures: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM fee_structures"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee structures: %w", err)
	}
	return structures, total, nil
}

// FindByID returns sql.ErrNoRows when the structure does not belong to the school.
func (r *FeeStructureRepository) FindByID(ctx context.Context, schoolID, id string) (*models.FeeStructure, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_structures WHERE school_id = $1 AND id = $2`, feeStructureColumns)
	var structure models.FeeStructure
	if err := r.db.GetContext(ctx, &structure, query, schoolID, id); err != nil {
		return nil, err
	}
	return &structure, nil
}

// FindByScope returns the structure occupying (year, grade, applies_to) or sql.ErrNoRows.
func (r *FeeStructureRepository) FindByScope(ctx context.Context, schoolID, yearID, gradeLevel string, appliesTo models.AppliesTo) (*models.FeeStructure, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_structures WHERE school_id = $1 AND academic_year_id = $2 AND grade_level = $3 AND applies_to = $4 LIMIT 1`, feeStructureColumns)
	var structure models.FeeStructure
	if err := r.db.GetContext(ctx, &structure, query, schoolID, yearID, gradeLevel, appliesTo); err != nil {
		return nil, err
	}
	return &structure, nil
}

// Create inserts the structure row.
func (r *FeeStructureRepository) Create(ctx context.Context, exec sqlx.ExtContext, structure *models.FeeStructure) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	structure.CreatedAt = now
	structure.UpdatedAt = now

	const query = `INSERT INTO fee_structures (id, school_id, academic_year_id, name, grade_level, applies_to, program_type, currency, total_amount, is_active, is_published, created_by, created_at, updated_at) VALUES (:id, :school_id, :academic_year_id, :name, :grade_level, :applies_to, :program_type, :currency, :total_amount, :is_active, :is_published, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, structure); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}
	return nil
}

// InsertItems bulk inserts the structure items.
func (r *FeeStructureRepository) InsertItems(ctx context.Context, exec sqlx.ExtContext, structureID string, items []models.FeeStructureItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].StructureID = structureID
	}
	const query = `INSERT INTO fee_structure_items (id, structure_id, category_id, amount, is_mandatory, is_recurring, payment_modes) VALUES (:id, :structure_id, :category_id, :amount, :is_mandatory, :is_recurring, :payment_modes)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, items); err != nil {
		return fmt.Errorf("insert fee structure items: %w", err)
	}
	return nil
}

// ListItems returns items with their category names.
func (r *FeeStructureRepository) ListItems(ctx context.Context, structureIDs []string) ([]models.FeeStructureItem, error) {
	if len(structureIDs) == 0 {
		return nil, nil
	}
	const query = `
SELECT i.id, i.structure_id, i.category_id, c.name AS category_name, i.amount, i.is_mandatory, i.is_recurring, i.payment_modes
FROM fee_structure_items i
JOIN fee_categories c ON c.id = i.category_id
WHERE i.structure_id = ANY($1)
ORDER BY c.category_type DESC, c.name`
	var items []models.FeeStructureItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(structureIDs)); err != nil {
		return nil, fmt.Errorf("list fee structure items: %w", err)
	}
	return items, nil
}

// SetPublished marks a structure published.
func (r *FeeStructureRepository) SetPublished(ctx context.Context, schoolID, id string) error {
	const query = `UPDATE fee_structures SET is_published = TRUE, updated_at = NOW() WHERE school_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, schoolID, id)
	if err != nil {
		return fmt.Errorf("publish fee structure: %w", err)
	}
	return requireAffected(res)
}
