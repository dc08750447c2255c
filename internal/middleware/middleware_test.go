package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/logger"
)

type authenticatorStub struct {
	profile    *models.Profile
	profileErr error
	lastToken  string
}

func (a *authenticatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	a.lastToken = token
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	claims := &models.JWTClaims{}
	claims.Subject = "user-1"
	return claims, nil
}

func (a *authenticatorStub) ResolveProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if a.profileErr != nil {
		return nil, a.profileErr
	}
	return a.profile, nil
}

func protectedRouter(auth Authenticator, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/fees", JWT(auth), RequireRoles(roles...), func(c *gin.Context) {
		profile := CurrentProfile(c)
		c.JSON(http.StatusOK, gin.H{"school_id": profile.SchoolID, "fields": len(logger.Fields(c))})
	})
	return r
}

func TestJWTAuthentication(t *testing.T) {
	admin := &models.Profile{UserID: "user-1", SchoolID: "school-1", Role: models.RoleSchoolAdmin, IsActive: true}
	cases := map[string]struct {
		header     string
		profileErr error
		status     int
	}{
		"missing header":   {"", nil, http.StatusUnauthorized},
		"wrong scheme":     {"Basic abc", nil, http.StatusUnauthorized},
		"empty token":      {"Bearer ", nil, http.StatusUnauthorized},
		"rejected token":   {"Bearer bad", nil, http.StatusUnauthorized},
		"inactive profile": {"Bearer good", appErrors.ErrInactiveAccount, http.StatusForbidden},
		"valid":            {"Bearer good", nil, http.StatusOK},
		"lowercase scheme": {"bearer good", nil, http.StatusOK},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			router := protectedRouter(&authenticatorStub{profile: admin, profileErr: tc.profileErr}, models.RoleSchoolAdmin)
			req := httptest.NewRequest(http.MethodGet, "/fees", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestJWTStoresProfileAndLogFields(t *testing.T) {
	router := protectedRouter(&authenticatorStub{profile: &models.Profile{UserID: "user-1", SchoolID: "school-9", Role: models.RoleAccountant}}, models.RoleAccountant)
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"school_id":"school-9","fields":2}`, w.Body.String())
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	teacher := &models.Profile{UserID: "user-2", SchoolID: "school-1", Role: models.RoleTeacher}
	router := protectedRouter(&authenticatorStub{profile: teacher}, models.RoleSchoolAdmin, models.RoleAccountant)
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestRequireRolesWithoutProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRoles(models.RoleSchoolAdmin)(c)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetCacheHitWritesHeaderAndMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/years", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/years", nil))
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
	assert.Equal(t, true, meta[cacheHitKey])
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/fees/structures/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fees/structures/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/123", nil))

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `route="/fees/structures/:id"`)
	assert.Contains(t, rec.Body.String(), `route="unmatched"`)
	assert.NotContains(t, rec.Body.String(), "/nowhere/123")
}
