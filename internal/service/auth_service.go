package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

// AuthConfig describes how bearer tokens from the identity provider are verified.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

// AuthService verifies identities and resolves them to school profiles.
// Issuing tokens is the identity provider's job.
type AuthService struct {
	profiles profileRepository
	config   AuthConfig
	logger   *zap.Logger
}

// NewAuthService constructs an auth service.
func NewAuthService(profiles profileRepository, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{profiles: profiles, config: cfg, logger: logger}
}

// ValidateToken parses an HS256 bearer token and checks issuer and audience when configured.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.Identity() == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if len(s.config.Audience) > 0 && !audienceAllowed(claims.Audience, s.config.Audience) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token audience not accepted")
	}
	return claims, nil
}

// ResolveProfile loads the caller's profile. Unknown users are unauthorized
// and inactive accounts are forbidden.
func (s *AuthService) ResolveProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "profile not found")
		}
		s.logger.Error("load profile", zap.String("user_id", userID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load profile")
	}
	if !profile.IsActive {
		return nil, appErrors.ErrInactiveAccount
	}
	return profile, nil
}

func audienceAllowed(got jwt.ClaimStrings, allowed []string) bool {
	for _, aud := range got {
		if slices.Contains(allowed, aud) {
			return true
		}
	}
	return false
}
