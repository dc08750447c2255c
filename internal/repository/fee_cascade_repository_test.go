package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectStructureTree(mock sqlmock.Sqlmock, structureIDs []string) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM payment_schedules WHERE structure_id = ANY($1)`)).
		WithArgs(pq.Array(structureIDs)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sch-1").AddRow("sch-2"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM student_fee_assignments WHERE structure_id = ANY($1)`)).
		WithArgs(pq.Array(structureIDs)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("as-1"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM student_fee_payments WHERE assignment_id = ANY($1)`)).
		WithArgs(pq.Array([]string{"as-1"})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fee_adjustments WHERE assignment_id = ANY($1)`)).
		WithArgs(pq.Array([]string{"as-1"})).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM student_fee_assignments WHERE id = ANY($1)`)).
		WithArgs(pq.Array([]string{"as-1"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM payment_installments WHERE schedule_id = ANY($1)`)).
		WithArgs(pq.Array([]string{"sch-1", "sch-2"})).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM payment_schedules WHERE id = ANY($1)`)).
		WithArgs(pq.Array([]string{"sch-1", "sch-2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fee_structure_items WHERE structure_id = ANY($1)`)).
		WithArgs(pq.Array(structureIDs)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fee_structures WHERE id = ANY($1)`)).
		WithArgs(pq.Array(structureIDs)).
		WillReturnResult(sqlmock.NewResult(0, int64(len(structureIDs))))
}

func TestFeeCascadeDeleteAcademicYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM academic_years WHERE school_id = $1 AND id = $2 FOR UPDATE`)).
		WithArgs("school-1", "year-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("year-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM fee_structures WHERE school_id = $1 AND academic_year_id = $2`)).
		WithArgs("school-1", "year-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("fs-1").AddRow("fs-2"))
	expectStructureTree(mock, []string{"fs-1", "fs-2"})
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fee_audit_trail WHERE school_id = $1 AND academic_year_id = $2`)).
		WithArgs("school-1", "year-1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM academic_terms WHERE school_id = $1 AND academic_year_id = $2`)).
		WithArgs("school-1", "year-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM academic_years WHERE school_id = $1 AND id = $2`)).
		WithArgs("school-1", "year-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := repo.DeleteAcademicYear(context.Background(), "school-1", "year-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Structures)
	assert.Equal(t, int64(2), summary.Schedules)
	assert.Equal(t, int64(4), summary.Installments)
	assert.Equal(t, int64(1), summary.Assignments)
	assert.Equal(t, int64(2), summary.Payments)
	assert.Equal(t, int64(5), summary.AuditRows)
	assert.Equal(t, int64(3), summary.Terms)
	assert.Equal(t, int64(1), summary.Years)
}

func TestFeeCascadeDeleteAcademicYearRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM academic_years`)).
		WithArgs("school-1", "year-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("year-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM fee_structures`)).
		WithArgs("school-1", "year-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fee_audit_trail`)).
		WithArgs("school-1", "year-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM academic_terms`)).
		WithArgs("school-1", "year-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.DeleteAcademicYear(context.Background(), "school-1", "year-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete academic terms")
}

func TestFeeCascadeDeleteAcademicYearNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM academic_years`)).
		WithArgs("school-1", "ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.DeleteAcademicYear(context.Background(), "school-1", "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFeeCascadeDeleteFeeStructure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCascadeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM fee_structures WHERE school_id = $1 AND id = $2 FOR UPDATE`)).
		WithArgs("school-1", "fs-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("fs-1"))
	expectStructureTree(mock, []string{"fs-1"})
	mock.ExpectCommit()

	summary, err := repo.DeleteFeeStructure(context.Background(), "school-1", "fs-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Structures)
	assert.Equal(t, int64(3), summary.Items)
	assert.Zero(t, summary.Years)
}
