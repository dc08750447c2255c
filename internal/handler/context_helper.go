package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/middleware"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// actorFromContext returns the caller's profile and writes a 401 when it is absent.
func actorFromContext(c *gin.Context) (*models.Profile, bool) {
	profile := middleware.CurrentProfile(c)
	if profile == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return profile, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}
