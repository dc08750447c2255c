package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

func feeCategories() []models.FeeCategory {
	return []models.FeeCategory{
		{ID: "cat-tuition", SchoolID: "school-1", Name: "Tuition", CategoryType: models.CategoryTuition, IsMandatory: true},
		{ID: "cat-books", SchoolID: "school-1", Name: "Books", CategoryType: models.CategoryAdditional},
		{ID: "cat-bus", SchoolID: "school-1", Name: "Transport", CategoryType: models.CategoryAdditional, IsRecurring: true},
	}
}

func TestCategoryServiceCreate(t *testing.T) {
	repo := &categoryRepoStub{}
	svc := NewCategoryService(repo, nil, nil)

	category, err := svc.Create(context.Background(), adminActor, dto.FeeCategoryRequest{Name: "Uniform", CategoryType: models.CategoryAdditional})
	require.NoError(t, err)
	assert.Equal(t, "cat-new", category.ID)
	assert.Equal(t, "school-1", category.SchoolID)

	_, err = svc.Create(context.Background(), adminActor, dto.FeeCategoryRequest{Name: "Lab", CategoryType: "misc"})
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	repo.createErr = &pq.Error{Code: "23505"}
	_, err = svc.Create(context.Background(), adminActor, dto.FeeCategoryRequest{Name: "Uniform", CategoryType: models.CategoryAdditional})
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestCategoryServiceUpdate(t *testing.T) {
	repo := &categoryRepoStub{categories: feeCategories()}
	svc := NewCategoryService(repo, nil, nil)

	updated, err := svc.Update(context.Background(), adminActor, "cat-books", dto.FeeCategoryRequest{Name: "Books & Stationery", CategoryType: models.CategoryAdditional, IsMandatory: true})
	require.NoError(t, err)
	assert.Equal(t, "Books & Stationery", updated.Name)
	assert.True(t, repo.categories[1].IsMandatory)

	_, err = svc.Update(context.Background(), adminActor, "ghost", dto.FeeCategoryRequest{Name: "x", CategoryType: models.CategoryTuition})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestCategoryServiceListNeverNil(t *testing.T) {
	categories, err := NewCategoryService(&categoryRepoStub{}, nil, nil).List(context.Background(), "school-1")
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
}
