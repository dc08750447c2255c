package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// TermRepository handles persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// ListByYear returns the terms of a year ordered by term number.
func (r *TermRepository) ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AcademicTerm, error) {
	const query = `SELECT id, school_id, academic_year_id, name, term_number, start_date, end_date, created_at FROM academic_terms WHERE school_id = $1 AND academic_year_id = $2 ORDER BY term_number`
	var terms []models.AcademicTerm
	if err := r.db.SelectContext(ctx, &terms, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list academic terms: %w", err)
	}
	return terms, nil
}

// Create inserts a term. Duplicate term numbers violate academic_terms_year_number_key.
func (r *TermRepository) Create(ctx context.Context, term *models.AcademicTerm) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if term.CreatedAt.IsZero() {
		term.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO academic_terms (id, school_id, academic_year_id, name, term_number, start_date, end_date, created_at) VALUES (:id, :school_id, :academic_year_id, :name, :term_number, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create academic term: %w", err)
	}
	return nil
}
