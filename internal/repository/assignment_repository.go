package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// insertBatchSize bounds the number of rows per multi-row INSERT.
const insertBatchSize = 500

const assignmentDetailSelect = `
SELECT a.id, a.school_id, a.student_id, a.structure_id, a.schedule_id, a.academic_year_id,
	a.total_due, a.paid_amount, a.status, a.created_by, a.created_at, a.updated_at,
	s.full_name AS student_name, s.grade_level, fs.name AS structure_name, ps.name AS schedule_name
FROM student_fee_assignments a
JOIN students s ON s.id = a.student_id
JOIN fee_structures fs ON fs.id = a.structure_id
JOIN payment_schedules ps ON ps.id = a.schedule_id`

// AssignmentRepository persists student fee assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository instantiates an assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ExistingKeys returns the (student, schedule) pairs already assigned for structureID.
func (r *AssignmentRepository) ExistingKeys(ctx context.Context, schoolID, structureID string, scheduleIDs []string) ([]models.AssignmentKey, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT student_id, schedule_id FROM student_fee_assignments WHERE school_id = $1 AND structure_id = $2 AND schedule_id = ANY($3)`
	var keys []models.AssignmentKey
	if err := r.db.SelectContext(ctx, &keys, query, schoolID, structureID, pq.Array(scheduleIDs)); err != nil {
		return nil, fmt.Errorf("load existing assignments: %w", err)
	}
	return keys, nil
}

// BulkInsert writes assignments, skipping pairs that already exist, and
// returns the number of rows actually inserted.
func (r *AssignmentRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, assignments []models.StudentFeeAssignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
		if assignments[i].Status == "" {
			assignments[i].Status = models.AssignmentActive
		}
		assignments[i].CreatedAt = now
		assignments[i].UpdatedAt = now
	}

	const query = `INSERT INTO student_fee_assignments (id, school_id, student_id, structure_id, schedule_id, academic_year_id, total_due, paid_amount, status, created_by, created_at, updated_at) VALUES (:id, :school_id, :student_id, :structure_id, :schedule_id, :academic_year_id, :total_due, :paid_amount, :status, :created_by, :created_at, :updated_at) ON CONFLICT (student_id, structure_id, schedule_id) DO NOTHING`

	target := r.exec(exec)
	var inserted int64
	for start := 0; start < len(assignments); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		res, err := sqlx.NamedExecContext(ctx, target, query, assignments[start:end])
		if err != nil {
			return inserted, fmt.Errorf("insert fee assignments: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insert fee assignments rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

// List returns a page of assignments with display names.
func (r *AssignmentRepository) List(ctx context.Context, schoolID string, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	conditions := []string{"a.school_id = $1"}
	args := []interface{}{schoolID}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		conditions = append(conditions, fmt.Sprintf("a.academic_year_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if filter.StructureID != "" {
		args = append(args, filter.StructureID)
		conditions = append(conditions, fmt.Sprintf("a.structure_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	_, size, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY s.full_name, ps.name LIMIT %d OFFSET %d", assignmentDetailSelect, where, size, offset)

	var rows []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee assignments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM student_fee_assignments a"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee assignments: %w", err)
	}
	return rows, total, nil
}

// ListByYear returns every assignment of a year for exports.
func (r *AssignmentRepository) ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AssignmentDetail, error) {
	query := assignmentDetailSelect + ` WHERE a.school_id = $1 AND a.academic_year_id = $2 ORDER BY s.grade_level, s.full_name, ps.name`
	var rows []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list fee assignments for export: %w", err)
	}
	return rows, nil
}

// LockByID loads an assignment with a row lock inside exec's transaction.
func (r *AssignmentRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.StudentFeeAssignment, error) {
	const query = `SELECT id, school_id, student_id, structure_id, schedule_id, academic_year_id, total_due, paid_amount, status, created_by, created_at, updated_at FROM student_fee_assignments WHERE school_id = $1 AND id = $2 FOR UPDATE`
	var assignment models.StudentFeeAssignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &assignment, query, schoolID, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// UpdateBalance stores the new paid amount and status.
func (r *AssignmentRepository) UpdateBalance(ctx context.Context, exec sqlx.ExtContext, id string, paid decimal.Decimal, status models.AssignmentStatus) error {
	const query = `UPDATE student_fee_assignments SET paid_amount = $1, status = $2, updated_at = NOW() WHERE id = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, paid, status, id)
	if err != nil {
		return fmt.Errorf("update assignment balance: %w", err)
	}
	return requireAffected(res)
}
