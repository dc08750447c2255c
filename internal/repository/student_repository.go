package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const studentColumns = `id, school_id, admission_number, full_name, grade_level, is_active, created_at, updated_at`

// StudentRepository reads students of a school.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository instantiates a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func studentConditions(schoolID string, filter models.StudentFilter) (string, []interface{}) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.GradeLevel != "" {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(COALESCE(admission_number, '')) LIKE $%d)", idx, idx))
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns a page of students and the total count.
func (r *StudentRepository) List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error) {
	where, args := studentConditions(schoolID, filter)
	_, size, offset := pageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY full_name LIMIT %d OFFSET %d", studentColumns, where, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student matching filter without paging.
func (r *StudentRepository) ListAll(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, error) {
	where, args := studentConditions(schoolID, filter)
	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY grade_level, full_name", studentColumns, where)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students in scope: %w", err)
	}
	return students, nil
}
