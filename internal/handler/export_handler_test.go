package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type exportServiceMock struct {
	job       *dto.ExportJobResponse
	download  *service.ExportDownload
	err       error
	lastToken string
	lastReq   dto.CreateExportRequest
}

func (m *exportServiceMock) Create(ctx context.Context, actor *models.Profile, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	m.lastReq = req
	return m.job, m.err
}

func (m *exportServiceMock) Status(ctx context.Context, schoolID, id string) (*dto.ExportJobResponse, error) {
	return m.job, m.err
}

func (m *exportServiceMock) Download(ctx context.Context, token string) (*service.ExportDownload, error) {
	m.lastToken = token
	return m.download, m.err
}

func TestExportHandlerCreateAccepted(t *testing.T) {
	mock := &exportServiceMock{job: &dto.ExportJobResponse{ID: "export-1", Status: models.ExportQueued, Format: models.ExportFormatCSV}}
	h := NewExportHandler(mock)
	c, w := newContext(http.MethodPost, "/fees/exports", map[string]string{"academic_year_id": "year-1", "format": "csv"}, testAdmin)

	h.Create(c)

	requireStatus(t, w, http.StatusAccepted)
	assert.Equal(t, models.ExportFormatCSV, mock.lastReq.Format)
}

func TestExportHandlerCreateDisabled(t *testing.T) {
	mock := &exportServiceMock{err: appErrors.ErrFeatureDisabled}
	h := NewExportHandler(mock)
	c, w := newContext(http.MethodPost, "/fees/exports", map[string]string{"format": "csv"}, testAdmin)

	h.Create(c)

	env := requireStatus(t, w, http.StatusNotFound)
	assert.Equal(t, "FEATURE_DISABLED", env.Error.Code)
}

func TestExportHandlerDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fees.csv")
	require.NoError(t, os.WriteFile(path, []byte("student,amount\nAnn,450.00\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mock := &exportServiceMock{download: &service.ExportDownload{File: file, Filename: "fees-2025.csv", ContentType: "text/csv"}}
	h := NewExportHandler(mock)
	c, w := newContext(http.MethodGet, "/fees/exports/download/token-1", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "token-1"}}

	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-1", mock.lastToken)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="fees-2025.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "student,amount\nAnn,450.00\n", w.Body.String())
}

func TestExportHandlerDownloadRejectsToken(t *testing.T) {
	mock := &exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "download link is invalid")}
	h := NewExportHandler(mock)
	c, w := newContext(http.MethodGet, "/fees/exports/download/bad", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	h.Download(c)

	requireStatus(t, w, http.StatusForbidden)
}
