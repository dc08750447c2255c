package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

var academicYearRowColumns = []string{"id", "school_id", "name", "start_date", "end_date", "term_structure", "is_active", "created_by", "created_at", "updated_at"}

func TestAcademicYearRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(academicYearRowColumns).
		AddRow("year-1", "school-1", "2025-2026", start, start.AddDate(1, 0, -1), "3 terms", true, nil, start, start)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + academicYearColumns + ` FROM academic_years WHERE school_id = $1 ORDER BY start_date DESC LIMIT 10 OFFSET 10`)).
		WithArgs("school-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM academic_years WHERE school_id = $1`)).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	years, total, err := repo.List(context.Background(), "school-1", 2, 10)
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, 11, total)
	assert.Equal(t, "2025-2026", years[0].Name)
	assert.True(t, years[0].IsActive)
}

func TestAcademicYearRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM academic_years WHERE school_id = $1 AND id = $2`)).
		WithArgs("school-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "school-1", "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAcademicYearRepositoryActivateInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE academic_years SET is_active = FALSE`)).
		WithArgs("school-1", "year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE academic_years SET is_active = TRUE`)).
		WithArgs("school-1", "year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.DeactivateOthers(context.Background(), tx, "school-1", "year-2"))
	require.NoError(t, repo.SetActive(context.Background(), tx, "school-1", "year-2"))
	require.NoError(t, tx.Commit())
}

func TestAcademicYearRepositorySetActiveMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE academic_years SET is_active = TRUE`)).
		WithArgs("school-1", "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), nil, "school-1", "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAcademicYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO academic_years`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	year := &models.AcademicYear{SchoolID: "school-1", Name: "2025-2026"}
	require.NoError(t, repo.Create(context.Background(), nil, year))
	assert.NotEmpty(t, year.ID)
	assert.False(t, year.CreatedAt.IsZero())
}

func TestAcademicYearRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM academic_years WHERE school_id = $1 AND LOWER(name) = LOWER($2) AND id <> $3 LIMIT 1`)).
		WithArgs("school-1", "2025-2026", "year-1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByName(context.Background(), "school-1", "2025-2026", "year-1")
	require.NoError(t, err)
	assert.False(t, exists)
}
