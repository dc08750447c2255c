package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const exportJobColumns = `id, school_id, academic_year_id, format, status, row_count, file_path, error_message, requested_by, created_at, finished_at`

// ExportJobRepository persists export job metadata.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a queued job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO fee_export_jobs (id, school_id, academic_year_id, format, status, row_count, file_path, error_message, requested_by, created_at, finished_at)
VALUES (:id, :school_id, :academic_year_id, :format, :status, :row_count, :file_path, :error_message, :requested_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID returns sql.ErrNoRows when the job is not visible to the school.
func (r *ExportJobRepository) FindByID(ctx context.Context, schoolID, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_export_jobs WHERE school_id = $1 AND id = $2`, exportJobColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, schoolID, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing moves a job out of the queue.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE fee_export_jobs SET status = $1, error_message = NULL WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, models.ExportProcessing, id); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkFinished records the stored file.
func (r *ExportJobRepository) MarkFinished(ctx context.Context, id, path string, rows int, finishedAt time.Time) error {
	const query = `UPDATE fee_export_jobs SET status = $1, file_path = $2, row_count = $3, finished_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, models.ExportFinished, path, rows, finishedAt, id); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	return nil
}

// MarkFailed stores the failure reason.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, reason string, finishedAt time.Time) error {
	const query = `UPDATE fee_export_jobs SET status = $1, error_message = $2, finished_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportFailed, reason, finishedAt, id); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}

// ListQueued fetches jobs left queued by a previous process.
func (r *ExportJobRepository) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM fee_export_jobs WHERE status = 'queued' ORDER BY created_at ASC LIMIT $1`, exportJobColumns)
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued export jobs: %w", err)
	}
	return jobs, nil
}

// ClearFilesBefore forgets stored files of jobs finished before cutoff and returns their paths.
func (r *ExportJobRepository) ClearFilesBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
WITH expired AS (
	SELECT id, file_path FROM fee_export_jobs
	WHERE status = 'finished' AND file_path IS NOT NULL AND finished_at < $1
	FOR UPDATE
)
UPDATE fee_export_jobs j SET file_path = NULL
FROM expired e WHERE j.id = e.id
RETURNING e.file_path`
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, query, cutoff); err != nil {
		return nil, fmt.Errorf("clear expired export files: %w", err)
	}
	return paths, nil
}
