package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/school", cfg.APIPrefix)
	assert.Equal(t, 50, cfg.Fees.PreviewLimit)
	assert.Equal(t, "USD", cfg.Fees.DefaultCurrency)
	assert.InDelta(t, 0.01, cfg.Fees.AmountTolerance, 1e-9)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ListTTL)
	assert.Equal(t, 24*time.Hour, cfg.Exports.SignedURLTTL)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("FEES_PREVIEW_LIMIT", 0)
	v.Set("FEES_DEFAULT_CURRENCY", "kes")
	v.Set("CACHE_LIST_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("JWT_AUDIENCE", "fees-api")

	cfg := fromViper(v)
	assert.Equal(t, 50, cfg.Fees.PreviewLimit)
	assert.Equal(t, "KES", cfg.Fees.DefaultCurrency)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ListTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"fees-api"}, cfg.JWT.Audience)
}
