package dto

import (
	"time"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// CreateExportRequest is the POST /fees/exports payload.
type CreateExportRequest struct {
	AcademicYearID string              `json:"academic_year_id" validate:"required"`
	Format         models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse exposes export progress and, once finished, a signed download link.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Status      models.ExportStatus `json:"status"`
	Format      models.ExportFormat `json:"format"`
	RowCount    int                 `json:"row_count"`
	DownloadURL *string             `json:"download_url,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
