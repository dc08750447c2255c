package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type profileRepoStub struct {
	profile *models.Profile
	err     error
}

func (s *profileRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{RegisteredClaims: claims})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{Secret: "s3cret", Issuer: "idp", Audience: []string{"fees"}}, nil)
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "idp",
		Audience:  jwt.ClaimStrings{"fees"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	claims, err := svc.ValidateToken(signToken(t, "s3cret", valid))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Identity())

	cases := map[string]string{
		"wrong secret": signToken(t, "other", valid),
		"expired": signToken(t, "s3cret", jwt.RegisteredClaims{
			Subject: "user-1", Issuer: "idp", Audience: jwt.ClaimStrings{"fees"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}),
		"wrong issuer":   signToken(t, "s3cret", jwt.RegisteredClaims{Subject: "user-1", Issuer: "x", Audience: jwt.ClaimStrings{"fees"}}),
		"wrong audience": signToken(t, "s3cret", jwt.RegisteredClaims{Subject: "user-1", Issuer: "idp", Audience: jwt.ClaimStrings{"lms"}}),
		"no subject":     signToken(t, "s3cret", jwt.RegisteredClaims{Issuer: "idp", Audience: jwt.ClaimStrings{"fees"}}),
		"garbage":        "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
		})
	}
}

func TestAuthServiceResolveProfile(t *testing.T) {
	active := &models.Profile{UserID: "user-1", SchoolID: "school-1", Role: models.RoleSchoolAdmin, IsActive: true}

	profile, err := NewAuthService(&profileRepoStub{profile: active}, AuthConfig{}, nil).ResolveProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "school-1", profile.SchoolID)

	_, err = NewAuthService(&profileRepoStub{err: sql.ErrNoRows}, AuthConfig{}, nil).ResolveProfile(context.Background(), "ghost")
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)

	inactive := *active
	inactive.IsActive = false
	_, err = NewAuthService(&profileRepoStub{profile: &inactive}, AuthConfig{}, nil).ResolveProfile(context.Background(), "user-1")
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	_, err = NewAuthService(&profileRepoStub{err: errors.New("db down")}, AuthConfig{}, nil).ResolveProfile(context.Background(), "user-1")
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}
