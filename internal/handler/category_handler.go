package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

type categoryService interface {
	List(ctx context.Context, schoolID string) ([]models.FeeCategory, error)
	Create(ctx context.Context, actor *models.Profile, req dto.FeeCategoryRequest) (*models.FeeCategory, error)
	Update(ctx context.Context, actor *models.Profile, id string, req dto.FeeCategoryRequest) (*models.FeeCategory, error)
}

// CategoryHandler exposes fee category endpoints.
type CategoryHandler struct {
	service categoryService
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(svc categoryService) *CategoryHandler {
	return &CategoryHandler{service: svc}
}

// List godoc
// @Summary List fee categories
// @Tags Fee Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.FeeCategory}
// @Router /fees/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	categories, err := h.service.List(c.Request.Context(), actor.SchoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Create godoc
// @Summary Create fee category
// @Tags Fee Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.FeeCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope{data=models.FeeCategory}
// @Failure 409 {object} response.Envelope
// @Router /fees/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.FeeCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update fee category
// @Tags Fee Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body dto.FeeCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope{data=models.FeeCategory}
// @Router /fees/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.FeeCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}
