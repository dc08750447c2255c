package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/middleware"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

type academicYearService interface {
	List(ctx context.Context, schoolID string, page, size int) (*dto.AcademicYearList, bool, error)
	Get(ctx context.Context, schoolID, id string) (*models.AcademicYear, error)
	Create(ctx context.Context, actor *models.Profile, req dto.CreateAcademicYearRequest) (*models.AcademicYear, error)
	Update(ctx context.Context, actor *models.Profile, id string, req dto.UpdateAcademicYearRequest) (*models.AcademicYear, error)
	Activate(ctx context.Context, actor *models.Profile, id string) (*models.AcademicYear, error)
	Delete(ctx context.Context, actor *models.Profile, id string) (*dto.DeletionSummary, error)
	ListTerms(ctx context.Context, schoolID, yearID string) ([]models.AcademicTerm, error)
	CreateTerm(ctx context.Context, actor *models.Profile, yearID string, req dto.CreateTermRequest) (*models.AcademicTerm, error)
}

// AcademicYearHandler exposes academic year and term endpoints.
type AcademicYearHandler struct {
	service academicYearService
}

// NewAcademicYearHandler constructs an academic year handler.
func NewAcademicYearHandler(svc academicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{service: svc}
}

// List godoc
// @Summary List academic years
// @Description Paginated academic years of the caller's school with stats. Served from cache when enabled.
// @Tags Academic Years
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=dto.AcademicYearList}
// @Router /fees/academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	result, hit, err := h.service.List(c.Request.Context(), actor.SchoolID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, result, result.Pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get academic year
// @Tags Academic Years
// @Produce json
// @Security BearerAuth
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope{data=models.AcademicYear}
// @Failure 404 {object} response.Envelope
// @Router /fees/academic-years/{id} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := h.service.Get(c.Request.Context(), actor.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Create godoc
// @Summary Create academic year
// @Description Creating an active year deactivates every other year of the school.
// @Tags Academic Years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAcademicYearRequest true "Academic year payload"
// @Success 201 {object} response.Envelope{data=models.AcademicYear}
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateAcademicYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Update godoc
// @Summary Update academic year
// @Tags Academic Years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Academic year ID"
// @Param payload body dto.UpdateAcademicYearRequest true "Academic year payload"
// @Success 200 {object} response.Envelope{data=models.AcademicYear}
// @Router /fees/academic-years/{id} [put]
func (h *AcademicYearHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateAcademicYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Activate godoc
// @Summary Activate academic year
// @Tags Academic Years
// @Produce json
// @Security BearerAuth
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope{data=models.AcademicYear}
// @Router /fees/academic-years/{id}/activate [post]
func (h *AcademicYearHandler) Activate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	year, err := h.service.Activate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Delete godoc
// @Summary Delete academic year
// @Description Removes the year with its structures, schedules, assignments, payments, terms and audit rows.
// @Tags Academic Years
// @Produce json
// @Security BearerAuth
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope{data=dto.DeletionSummary}
// @Router /fees/academic-years/{id} [delete]
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	summary, err := h.service.Delete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "academic year deleted", summary)
}

// ListTerms godoc
// @Summary List academic terms
// @Tags Academic Years
// @Produce json
// @Security BearerAuth
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope{data=[]models.AcademicTerm}
// @Router /fees/academic-years/{id}/terms [get]
func (h *AcademicYearHandler) ListTerms(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	terms, err := h.service.ListTerms(c.Request.Context(), actor.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, nil)
}

// CreateTerm godoc
// @Summary Create academic term
// @Tags Academic Years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Academic year ID"
// @Param payload body dto.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope{data=models.AcademicTerm}
// @Router /fees/academic-years/{id}/terms [post]
func (h *AcademicYearHandler) CreateTerm(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTermRequest
	if !bindJSON(c, &req) {
		return
	}
	term, err := h.service.CreateTerm(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}
