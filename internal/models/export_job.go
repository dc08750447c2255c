package models

import "time"

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportQueued     ExportStatus = "queued"
	ExportProcessing ExportStatus = "processing"
	ExportFinished   ExportStatus = "finished"
	ExportFailed     ExportStatus = "failed"
)

// ExportJob tracks an asynchronous assignment export.
type ExportJob struct {
	ID             string       `db:"id" json:"id"`
	SchoolID       string       `db:"school_id" json:"school_id"`
	AcademicYearID string       `db:"academic_year_id" json:"academic_year_id"`
	Format         ExportFormat `db:"format" json:"format"`
	Status         ExportStatus `db:"status" json:"status"`
	RowCount       int          `db:"row_count" json:"row_count"`
	FilePath       *string      `db:"file_path" json:"-"`
	ErrorMessage   *string      `db:"error_message" json:"error_message,omitempty"`
	RequestedBy    string       `db:"requested_by" json:"requested_by"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	FinishedAt     *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
