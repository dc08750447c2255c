package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/feeplan"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

type scheduleService interface {
	Preview(req dto.PaymentPlanPreviewRequest) (*feeplan.Plan, error)
	List(ctx context.Context, schoolID, structureID string) ([]dto.ScheduleView, error)
	Create(ctx context.Context, actor *models.Profile, structureID string, req dto.ScheduleRequest) (*dto.ScheduleView, error)
}

// ScheduleHandler exposes payment schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Preview godoc
// @Summary Preview a payment plan
// @Description Computes installments for a plan type without persisting anything.
// @Tags Payment Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PaymentPlanPreviewRequest true "Preview payload"
// @Success 200 {object} response.Envelope{data=feeplan.Plan}
// @Failure 400 {object} response.Envelope
// @Router /fees/payment-plans/preview [post]
func (h *ScheduleHandler) Preview(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	var req dto.PaymentPlanPreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.service.Preview(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// List godoc
// @Summary List payment schedules of a structure
// @Tags Payment Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Structure ID"
// @Success 200 {object} response.Envelope{data=[]dto.ScheduleView}
// @Router /fees/structures/{id}/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	schedules, err := h.service.List(c.Request.Context(), actor.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Create godoc
// @Summary Add a payment schedule to a structure
// @Tags Payment Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Structure ID"
// @Param payload body dto.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope{data=dto.ScheduleView}
// @Router /fees/structures/{id}/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}
