package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/export"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
)

type assignmentExportSource interface {
	ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AssignmentDetail, error)
}

var assignmentExportColumns = []export.Column{
	{Key: "student", Label: "Student"},
	{Key: "grade", Label: "Grade"},
	{Key: "structure", Label: "Fee Structure"},
	{Key: "schedule", Label: "Schedule"},
	{Key: "status", Label: "Status"},
	{Key: "total_due", Label: "Total Due", Numeric: true},
	{Key: "paid", Label: "Paid", Numeric: true},
	{Key: "balance", Label: "Balance", Numeric: true},
}

// ExportWorker renders queued export jobs to storage.
type ExportWorker struct {
	repo        exportJobRepository
	assignments assignmentExportSource
	years       yearLookup
	storage     exportStorage
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobRepository, assignments assignmentExportSource, years yearLookup, store exportStorage, metrics *MetricsService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{
		repo:        repo,
		assignments: assignments,
		years:       years,
		storage:     store,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle processes one export task. Errors are retried by the queue.
func (w *ExportWorker) Handle(ctx context.Context, task jobs.Task) error {
	schoolID, _ := task.Payload.(string)
	job, err := w.repo.FindByID(ctx, schoolID, task.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", task.ID, err)
	}
	if job.Status == models.ExportFinished {
		return nil
	}
	if err := w.repo.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}

	year, err := w.years.FindByID(ctx, job.SchoolID, job.AcademicYearID)
	if err != nil {
		return fmt.Errorf("load academic year: %w", err)
	}
	rows, err := w.assignments.ListByYear(ctx, job.SchoolID, job.AcademicYearID)
	if err != nil {
		return err
	}
	renderer, err := export.ForFormat(string(job.Format))
	if err != nil {
		return err
	}
	payload, err := renderer.Render(assignmentTable(year.Name, rows))
	if err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	name := fmt.Sprintf("%s/fees_%s_%s.%s", job.SchoolID, job.AcademicYearID, job.ID, renderer.Extension())
	path, err := w.storage.Save(name, payload)
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	if err := w.repo.MarkFinished(ctx, job.ID, path, len(rows), w.now().UTC()); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	w.metrics.RecordExport(job.Format, models.ExportFinished)
	w.logger.Info("export finished", zap.String("export_id", job.ID), zap.Int("rows", len(rows)))
	return nil
}

// Fail marks a task that exhausted its retries.
func (w *ExportWorker) Fail(ctx context.Context, task jobs.Task, cause error) {
	if err := w.repo.MarkFailed(ctx, task.ID, cause.Error(), w.now().UTC()); err != nil {
		w.logger.Warn("mark export failed", zap.String("export_id", task.ID), zap.Error(err))
	}
	format := models.ExportFormat("unknown")
	if schoolID, ok := task.Payload.(string); ok {
		if job, err := w.repo.FindByID(ctx, schoolID, task.ID); err == nil {
			format = job.Format
		}
	}
	w.metrics.RecordExport(format, models.ExportFailed)
}

func assignmentTable(yearName string, rows []models.AssignmentDetail) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Fee assignments %s", yearName),
		Columns: assignmentExportColumns,
		Rows:    make([]map[string]string, len(rows)),
	}
	due, paid := decimal.Zero, decimal.Zero
	for i, row := range rows {
		table.Rows[i] = map[string]string{
			"student":   row.StudentName,
			"grade":     row.GradeLevel,
			"structure": row.StructureName,
			"schedule":  row.ScheduleName,
			"status":    string(row.Status),
			"total_due": row.TotalDue.StringFixed(2),
			"paid":      row.PaidAmount.StringFixed(2),
			"balance":   row.Balance().StringFixed(2),
		}
		due = due.Add(row.TotalDue)
		paid = paid.Add(row.PaidAmount)
	}
	table.Footer = map[string]string{
		"student":   fmt.Sprintf("%d assignments", len(rows)),
		"total_due": due.StringFixed(2),
		"paid":      paid.StringFixed(2),
		"balance":   due.Sub(paid).StringFixed(2),
	}
	return table
}
