package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

func TestStudentServiceListNormalisesFilter(t *testing.T) {
	repo := &studentRepoStub{students: gradeStudents("Grade 3", 3)}
	svc := NewStudentService(repo, nil)

	students, pagination, err := svc.List(context.Background(), "school-1", models.StudentFilter{Search: "  amina ", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, students, 3)
	assert.Equal(t, "amina", repo.lastFilter.Search)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 100, repo.lastFilter.PageSize)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 100, TotalCount: 3, TotalPages: 1}, pagination)
}
