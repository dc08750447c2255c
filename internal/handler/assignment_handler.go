package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

type assignmentService interface {
	AutoAssign(ctx context.Context, actor *models.Profile, req dto.AutoAssignRequest) (*dto.AutoAssignResult, error)
	List(ctx context.Context, schoolID string, filter models.AssignmentFilter) ([]dto.AssignmentView, *models.Pagination, error)
}

type paymentService interface {
	Record(ctx context.Context, actor *models.Profile, assignmentID string, req dto.RecordPaymentRequest) (*dto.PaymentResult, error)
}

// AssignmentHandler exposes auto-assignment, assignment listing and payment endpoints.
type AssignmentHandler struct {
	service  assignmentService
	payments paymentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc assignmentService, payments paymentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc, payments: payments}
}

// AutoAssign godoc
// @Summary Assign a fee template to students
// @Description Resolves students and schedules, skips existing assignments and either previews or commits the rest.
// @Tags Fee Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AutoAssignRequest true "Auto assign payload"
// @Success 200 {object} response.Envelope{data=dto.AutoAssignResult}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/auto-assign [post]
func (h *AssignmentHandler) AutoAssign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AutoAssignRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.AutoAssign(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Message != "" {
		response.Message(c, http.StatusOK, result.Message, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List fee assignments
// @Tags Fee Assignments
// @Produce json
// @Security BearerAuth
// @Param academic_year_id query string false "Academic year"
// @Param student_id query string false "Student"
// @Param structure_id query string false "Structure"
// @Param status query string false "active, completed or cancelled"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]dto.AssignmentView}
// @Router /fees/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	filter := models.AssignmentFilter{
		AcademicYearID: c.Query("academic_year_id"),
		StudentID:      c.Query("student_id"),
		StructureID:    c.Query("structure_id"),
		Status:         models.AssignmentStatus(c.Query("status")),
		Page:           page,
		PageSize:       limit,
	}
	views, pagination, err := h.service.List(c.Request.Context(), actor.SchoolID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// RecordPayment godoc
// @Summary Record a payment against an assignment
// @Tags Fee Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope{data=dto.PaymentResult}
// @Failure 400 {object} response.Envelope
// @Router /fees/assignments/{id}/payments [post]
func (h *AssignmentHandler) RecordPayment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.payments.Record(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
