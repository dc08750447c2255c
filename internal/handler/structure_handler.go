package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

type structureService interface {
	List(ctx context.Context, schoolID string, filter models.StructureFilter) ([]models.FeeStructure, *models.Pagination, error)
	Get(ctx context.Context, schoolID, id string) (*models.FeeStructure, error)
	Create(ctx context.Context, actor *models.Profile, req dto.CreateFeeStructureRequest) (*models.FeeStructure, error)
	Draft(ctx context.Context, schoolID string, req dto.DraftStructureRequest) (*dto.DraftResult, error)
	Publish(ctx context.Context, actor *models.Profile, id string) (*models.FeeStructure, error)
	Delete(ctx context.Context, actor *models.Profile, id string) (*dto.DeletionSummary, error)
}

// StructureHandler exposes fee structure endpoints.
type StructureHandler struct {
	service structureService
}

// NewStructureHandler constructs a structure handler.
func NewStructureHandler(svc structureService) *StructureHandler {
	return &StructureHandler{service: svc}
}

// List godoc
// @Summary List fee structures
// @Tags Fee Structures
// @Produce json
// @Security BearerAuth
// @Param academic_year_id query string false "Academic year"
// @Param grade_level query string false "Grade level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.FeeStructure}
// @Router /fees/structures [get]
func (h *StructureHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	filter := models.StructureFilter{
		AcademicYearID: c.Query("academic_year_id"),
		GradeLevel:     c.Query("grade_level"),
		Page:           page,
		PageSize:       limit,
	}
	structures, pagination, err := h.service.List(c.Request.Context(), actor.SchoolID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, pagination)
}

// Get godoc
// @Summary Get fee structure
// @Tags Fee Structures
// @Produce json
// @Security BearerAuth
// @Param id path string true "Structure ID"
// @Success 200 {object} response.Envelope{data=models.FeeStructure}
// @Failure 404 {object} response.Envelope
// @Router /fees/structures/{id} [get]
func (h *StructureHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	structure, err := h.service.Get(c.Request.Context(), actor.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// Create godoc
// @Summary Create fee structure
// @Description Creates the structure, its items and its payment schedule in one transaction.
// @Tags Fee Structures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateFeeStructureRequest true "Structure payload"
// @Success 201 {object} response.Envelope{data=models.FeeStructure}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/structures [post]
func (h *StructureHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateFeeStructureRequest
	if !bindJSON(c, &req) {
		return
	}
	structure, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, structure)
}

// Draft godoc
// @Summary Validate a draft structure
// @Description Computes totals and reports missing fields without persisting anything.
// @Tags Fee Structures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DraftStructureRequest true "Draft payload"
// @Success 200 {object} response.Envelope{data=dto.DraftResult}
// @Router /fees/structures/draft [post]
func (h *StructureHandler) Draft(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DraftStructureRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Draft(c.Request.Context(), actor.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Publish fee structure
// @Tags Fee Structures
// @Produce json
// @Security BearerAuth
// @Param id path string true "Structure ID"
// @Success 200 {object} response.Envelope{data=models.FeeStructure}
// @Router /fees/structures/{id}/publish [post]
func (h *StructureHandler) Publish(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	structure, err := h.service.Publish(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// Delete godoc
// @Summary Delete fee structure
// @Tags Fee Structures
// @Produce json
// @Security BearerAuth
// @Param id path string true "Structure ID"
// @Success 200 {object} response.Envelope{data=dto.DeletionSummary}
// @Router /fees/structures/{id} [delete]
func (h *StructureHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	summary, err := h.service.Delete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "fee structure deleted", summary)
}
