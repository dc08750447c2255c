package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// RequireRoles lets through callers whose profile holds one of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := CurrentProfile(c)
		if profile == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !profile.HasRole(roles...) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}
