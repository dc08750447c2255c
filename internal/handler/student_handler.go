package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
}

// StudentHandler exposes the read-only student directory.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param grade_level query string false "Grade level"
// @Param search query string false "Name search"
// @Param active query bool false "Only active students"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Student}
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	filter := models.StudentFilter{
		GradeLevel: c.Query("grade_level"),
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
		Page:       page,
		PageSize:   limit,
	}
	students, pagination, err := h.service.List(c.Request.Context(), actor.SchoolID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}
