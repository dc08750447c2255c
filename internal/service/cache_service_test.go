package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("redis down")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("redis down")
}

func (failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("redis down")
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newCacheRepoStub(), metrics, 0, nil, true)
	ctx := context.Background()

	var out []string
	hit, err := cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "k", []string{"a"}, 0))
	hit, err = cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabledIsPermanentMiss(t *testing.T) {
	var nilCache *CacheService
	hit, err := nilCache.Get(context.Background(), "k", &struct{}{})
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, nilCache.Invalidate(context.Background(), "*"))

	repo := newCacheRepoStub()
	disabled := NewCacheService(repo, nil, time.Minute, nil, false)
	require.NoError(t, disabled.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.values)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	cache := NewCacheService(failingCacheRepo{}, nil, time.Minute, nil, true)

	hit, err := cache.Get(context.Background(), "k", &struct{}{})
	assert.False(t, hit)
	assert.Error(t, err)
	assert.Error(t, cache.Invalidate(context.Background(), "academic_years:*"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordAssignments(3)
	metrics.RecordPayment()
	metrics.ObserveHTTPRequest("GET", "/x", 200, time.Millisecond)
	metrics.ObserveAutoAssign(true, time.Now())
	metrics.RecordExport(models.ExportFormatCSV, models.ExportFailed)
	assert.Zero(t, metrics.Snapshot().RequestsTotal)
}

func TestMetricsServiceSnapshotTracksFeeActivity(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveAutoAssign(true, time.Now().Add(-20*time.Millisecond))
	metrics.RecordExport(models.ExportFormatCSV, models.ExportFinished)
	metrics.RecordExport(models.ExportFormatPDF, models.ExportFailed)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.AutoAssignRuns)
	assert.GreaterOrEqual(t, snapshot.AverageAutoAssignMs, float64(20))
	assert.Equal(t, uint64(1), snapshot.ExportsFinished)
	assert.Equal(t, uint64(1), snapshot.ExportsFailed)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `fee_auto_assign_duration_seconds_count{mode="preview"} 1`)
	assert.Contains(t, rec.Body.String(), `fee_exports_total{format="pdf",status="failed"} 1`)
}
