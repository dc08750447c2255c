package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const academicYearColumns = `id, school_id, name, start_date, end_date, term_structure, is_active, created_by, created_at, updated_at`

// AcademicYearRepository persists academic years per school.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

func (r *AcademicYearRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns a page of years, newest first, and the total count.
func (r *AcademicYearRepository) List(ctx context.Context, schoolID string, page, size int) ([]models.AcademicYear, int, error) {
	_, size, offset := pageWindow(page, size)
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE school_id = $1 ORDER BY start_date DESC LIMIT %d OFFSET %d`, academicYearColumns, size, offset)

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, schoolID); err != nil {
		return nil, 0, fmt.Errorf("list academic years: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM academic_years WHERE school_id = $1`, schoolID); err != nil {
		return nil, 0, fmt.Errorf("count academic years: %w", err)
	}
	return years, total, nil
}

// Stats aggregates year and structure counts for a school.
func (r *AcademicYearRepository) Stats(ctx context.Context, schoolID string) (models.AcademicYearStats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM academic_years WHERE school_id = $1) AS total_years,
	(SELECT id FROM academic_years WHERE school_id = $1 AND is_active = TRUE LIMIT 1) AS active_year_id,
	(SELECT COUNT(*) FROM fee_structures WHERE school_id = $1) AS total_structures`
	var stats models.AcademicYearStats
	if err := r.db.GetContext(ctx, &stats, query, schoolID); err != nil {
		return stats, fmt.Errorf("academic year stats: %w", err)
	}
	return stats, nil
}

// FindByID loads a year inside the school. Missing rows yield sql.ErrNoRows.
func (r *AcademicYearRepository) FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE school_id = $1 AND id = $2`, academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, schoolID, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByName reports whether another year of the school already uses name.
func (r *AcademicYearRepository) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM academic_years WHERE school_id = $1 AND LOWER(name) = LOWER($2)`
	args := []interface{}{schoolID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check academic year name: %w", err)
	}
	return true, nil
}

// Create inserts a year.
func (r *AcademicYearRepository) Create(ctx context.Context, exec sqlx.ExtContext, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, school_id, name, start_date, end_date, term_structure, is_active, created_by, created_at, updated_at) VALUES (:id, :school_id, :name, :start_date, :end_date, :term_structure, :is_active, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of a year.
func (r *AcademicYearRepository) Update(ctx context.Context, exec sqlx.ExtContext, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, term_structure = :term_structure, is_active = :is_active, updated_at = :updated_at WHERE school_id = :school_id AND id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, year)
	if err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return requireAffected(res)
}

// DeactivateOthers clears the active flag on every other year of the school.
func (r *AcademicYearRepository) DeactivateOthers(ctx context.Context, exec sqlx.ExtContext, schoolID, keepID string) error {
	const query = `UPDATE academic_years SET is_active = FALSE, updated_at = NOW() WHERE school_id = $1 AND id <> $2 AND is_active = TRUE`
	if _, err := r.exec(exec).ExecContext(ctx, query, schoolID, keepID); err != nil {
		return fmt.Errorf("deactivate academic years: %w", err)
	}
	return nil
}

// SetActive marks a single year active. Callers deactivate the rest in the same transaction.
func (r *AcademicYearRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) error {
	const query = `UPDATE academic_years SET is_active = TRUE, updated_at = NOW() WHERE school_id = $1 AND id = $2`
	res, err := r.exec(exec).ExecContext(ctx, query, schoolID, id)
	if err != nil {
		return fmt.Errorf("activate academic year: %w", err)
	}
	return requireAffected(res)
}

// requireAffected turns a zero row update into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
