package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-fees-api/internal/dto"
)

// FeeCascadeRepository deletes academic years and fee structures together
// with every row they own. The schema carries no ON DELETE CASCADE, so rows
// are removed leaf first inside a single transaction.
type FeeCascadeRepository struct {
	db *sqlx.DB
}

// NewFeeCascadeRepository instantiates the cascade repository.
func NewFeeCascadeRepository(db *sqlx.DB) *FeeCascadeRepository {
	return &FeeCascadeRepository{db: db}
}

// DeleteAcademicYear removes the year, its terms, audit rows, structures and
// everything below them. sql.ErrNoRows is returned when the year is unknown.
func (r *FeeCascadeRepository) DeleteAcademicYear(ctx context.Context, schoolID, yearID string) (summary dto.DeletionSummary, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin academic year delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	if err = tx.GetContext(ctx, &lockedID, `SELECT id FROM academic_years WHERE school_id = $1 AND id = $2 FOR UPDATE`, schoolID, yearID); err != nil {
		return summary, err
	}

	var structureIDs []string
	if err = tx.SelectContext(ctx, &structureIDs, `SELECT id FROM fee_structures WHERE school_id = $1 AND academic_year_id = $2`, schoolID, yearID); err != nil {
		return summary, fmt.Errorf("collect fee structures: %w", err)
	}
	if err = deleteStructureTree(ctx, tx, structureIDs, &summary); err != nil {
		return summary, err
	}

	steps := []struct {
		label  string
		query  string
		target *int64
	}{
		{"fee audit trail", `DELETE FROM fee_audit_trail WHERE school_id = $1 AND academic_year_id = $2`, &summary.AuditRows},
		{"academic terms", `DELETE FROM academic_terms WHERE school_id = $1 AND academic_year_id = $2`, &summary.Terms},
		{"academic year", `DELETE FROM academic_years WHERE school_id = $1 AND id = $2`, &summary.Years},
	}
	for _, step := range steps {
		if *step.target, err = execCount(ctx, tx, step.query, schoolID, yearID); err != nil {
			return summary, fmt.Errorf("delete %s: %w", step.label, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit academic year delete: %w", err)
	}
	return summary, nil
}

// DeleteFeeStructure removes one structure with its items, schedules,
// installments, assignments and their payments. sql.ErrNoRows is returned when
// the structure is unknown.
func (r *FeeCascadeRepository) DeleteFeeStructure(ctx context.Context, schoolID, structureID string) (summary dto.DeletionSummary, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin fee structure delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string
	if err = tx.GetContext(ctx, &lockedID, `SELECT id FROM fee_structures WHERE school_id = $1 AND id = $2 FOR UPDATE`, schoolID, structureID); err != nil {
		return summary, err
	}
	if err = deleteStructureTree(ctx, tx, []string{lockedID}, &summary); err != nil {
		return summary, err
	}

	if err = tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit fee structure delete: %w", err)
	}
	return summary, nil
}

// deleteStructureTree removes payments and adjustments, assignments,
// installments, schedules, items and finally the structures themselves.
func deleteStructureTree(ctx context.Context, tx *sqlx.Tx, structureIDs []string, summary *dto.DeletionSummary) error {
	if len(structureIDs) == 0 {
		return nil
	}
	structures := pq.Array(structureIDs)

	var scheduleIDs []string
	if err := tx.SelectContext(ctx, &scheduleIDs, `SELECT id FROM payment_schedules WHERE structure_id = ANY($1)`, structures); err != nil {
		return fmt.Errorf("collect payment schedules: %w", err)
	}
	var assignmentIDs []string
	if err := tx.SelectContext(ctx, &assignmentIDs, `SELECT id FROM student_fee_assignments WHERE structure_id = ANY($1)`, structures); err != nil {
		return fmt.Errorf("collect fee assignments: %w", err)
	}

	var err error
	if len(assignmentIDs) > 0 {
		assignments := pq.Array(assignmentIDs)
		if summary.Payments, err = execCount(ctx, tx, `DELETE FROM student_fee_payments WHERE assignment_id = ANY($1)`, assignments); err != nil {
			return fmt.Errorf("delete fee payments: %w", err)
		}
		if summary.Adjustments, err = execCount(ctx, tx, `DELETE FROM fee_adjustments WHERE assignment_id = ANY($1)`, assignments); err != nil {
			return fmt.Errorf("delete fee adjustments: %w", err)
		}
		if summary.Assignments, err = execCount(ctx, tx, `DELETE FROM student_fee_assignments WHERE id = ANY($1)`, assignments); err != nil {
			return fmt.Errorf("delete fee assignments: %w", err)
		}
	}
	if len(scheduleIDs) > 0 {
		schedules := pq.Array(scheduleIDs)
		if summary.Installments, err = execCount(ctx, tx, `DELETE FROM payment_installments WHERE schedule_id = ANY($1)`, schedules); err != nil {
			return fmt.Errorf("delete payment installments: %w", err)
		}
		if summary.Schedules, err = execCount(ctx, tx, `DELETE FROM payment_schedules WHERE id = ANY($1)`, schedules); err != nil {
			return fmt.Errorf("delete payment schedules: %w", err)
		}
	}
	if summary.Items, err = execCount(ctx, tx, `DELETE FROM fee_structure_items WHERE structure_id = ANY($1)`, structures); err != nil {
		return fmt.Errorf("delete fee structure items: %w", err)
	}
	if summary.Structures, err = execCount(ctx, tx, `DELETE FROM fee_structures WHERE id = ANY($1)`, structures); err != nil {
		return fmt.Errorf("delete fee structures: %w", err)
	}
	return nil
}

func execCount(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
