package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/logger"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing the caller's profile.
	ContextUserKey = "currentUser"
	// ContextClaimsKey is the gin context key storing the validated token claims.
	ContextClaimsKey = "currentClaims"
)

// Authenticator validates bearer tokens and resolves the caller's profile.
type Authenticator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	ResolveProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// JWT protects routes by requiring a valid access token bound to an active profile.
// The school of every request comes from the profile, never from the payload.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		profile, err := auth.ResolveProfile(c.Request.Context(), claims.Identity())
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextUserKey, profile)
		logger.AddFields(c, zap.String("user_id", profile.UserID), zap.String("school_id", profile.SchoolID))
		c.Next()
	}
}

// CurrentProfile returns the profile stored by JWT, or nil.
func CurrentProfile(c *gin.Context) *models.Profile {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	profile, _ := value.(*models.Profile)
	return profile
}
