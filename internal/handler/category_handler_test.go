package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type categoryServiceMock struct {
	err     error
	lastID  string
	lastReq dto.FeeCategoryRequest
}

func (m *categoryServiceMock) List(ctx context.Context, schoolID string) ([]models.FeeCategory, error) {
	return []models.FeeCategory{{ID: "cat-1", SchoolID: schoolID, Name: "Tuition", CategoryType: models.CategoryTuition}}, m.err
}

func (m *categoryServiceMock) Create(ctx context.Context, actor *models.Profile, req dto.FeeCategoryRequest) (*models.FeeCategory, error) {
	m.lastReq = req
	return &models.FeeCategory{ID: "cat-new", Name: req.Name, CategoryType: req.CategoryType}, m.err
}

func (m *categoryServiceMock) Update(ctx context.Context, actor *models.Profile, id string, req dto.FeeCategoryRequest) (*models.FeeCategory, error) {
	m.lastID = id
	m.lastReq = req
	return &models.FeeCategory{ID: id, Name: req.Name}, m.err
}

func TestCategoryHandlerList(t *testing.T) {
	h := NewCategoryHandler(&categoryServiceMock{})
	c, w := newContext(http.MethodGet, "/fees/categories", nil, testAdmin)

	h.List(c)

	env := requireStatus(t, w, http.StatusOK)
	assert.Contains(t, string(env.Data), `"school-1"`)
}

func TestCategoryHandlerCreate(t *testing.T) {
	mock := &categoryServiceMock{}
	h := NewCategoryHandler(mock)
	c, w := newContext(http.MethodPost, "/fees/categories", map[string]interface{}{"name": "Transport", "category_type": "additional", "is_recurring": true}, testAdmin)

	h.Create(c)

	requireStatus(t, w, http.StatusCreated)
	assert.Equal(t, "Transport", mock.lastReq.Name)
	assert.True(t, mock.lastReq.IsRecurring)
	assert.Equal(t, models.CategoryAdditional, mock.lastReq.CategoryType)
}

func TestCategoryHandlerUpdateNotFound(t *testing.T) {
	mock := &categoryServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "fee category not found")}
	h := NewCategoryHandler(mock)
	c, w := newContext(http.MethodPut, "/fees/categories/missing", map[string]string{"name": "Books"}, testAdmin)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Update(c)

	env := requireStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "missing", mock.lastID)
	assert.Equal(t, "fee category not found", env.Error.Message)
}
