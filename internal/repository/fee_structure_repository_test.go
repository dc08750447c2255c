package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

var feeStructureRowColumns = []string{"id", "school_id", "academic_year_id", "name", "grade_level", "applies_to", "program_type", "currency", "total_amount", "is_active", "is_published", "created_by", "created_at", "updated_at"}

func TestFeeStructureRepositoryFindByScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM fee_structures WHERE school_id = $1 AND academic_year_id = $2 AND grade_level = $3 AND applies_to = $4 LIMIT 1`)).
		WithArgs("school-1", "year-1", "Grade 1", models.AppliesToGrade).
		WillReturnRows(sqlmock.NewRows(feeStructureRowColumns).
			AddRow("fs-1", "school-1", "year-1", "Grade 1 Tuition", "Grade 1", "grade", nil, "USD", "550.00", true, false, nil, now, now))

	structure, err := repo.FindByScope(context.Background(), "school-1", "year-1", "Grade 1", models.AppliesToGrade)
	require.NoError(t, err)
	assert.Equal(t, "Grade 1 Tuition", structure.Name)
	assert.True(t, structure.TotalAmount.Equal(decimal.NewFromInt(550)))
	assert.Nil(t, structure.ProgramType)
}

func TestFeeStructureRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM fee_structures WHERE school_id = $1 AND academic_year_id = $2 AND grade_level = $3 ORDER BY created_at DESC LIMIT 20 OFFSET 0`)).
		WithArgs("school-1", "year-1", "Grade 2").
		WillReturnRows(sqlmock.NewRows(feeStructureRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM fee_structures WHERE school_id = $1 AND academic_year_id = $2 AND grade_level = $3`)).
		WithArgs("school-1", "year-1", "Grade 2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), "school-1", models.StructureFilter{AcademicYearID: "year-1", GradeLevel: "Grade 2"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestFeeStructureRepositoryInsertItemsAssignsIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO fee_structure_items`)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	items := []models.FeeStructureItem{
		{CategoryID: "cat-1", Amount: decimal.NewFromInt(500), PaymentModes: pq.StringArray{"one_time"}},
		{CategoryID: "cat-2", Amount: decimal.NewFromInt(50), PaymentModes: pq.StringArray{"termly"}},
	}
	require.NoError(t, repo.InsertItems(context.Background(), nil, "fs-1", items))
	for _, item := range items {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "fs-1", item.StructureID)
	}
}

func TestFeeStructureRepositorySetPublishedMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeStructureRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE fee_structures SET is_published = TRUE`)).
		WithArgs("school-1", "fs-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.SetPublished(context.Background(), "school-1", "fs-x"), sql.ErrNoRows)
}
