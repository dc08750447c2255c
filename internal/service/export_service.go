package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
	"github.com/noah-isme/school-fees-api/pkg/storage"
)

// exportTaskKind tags queue tasks produced by ExportService.
const exportTaskKind = "fee_export"

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, schoolID, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, path string, rows int, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string, finishedAt time.Time) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ClearFilesBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type exportStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	RemoveOlderThan(age time.Duration, now time.Time) ([]string, error)
}

type downloadSigner interface {
	Sign(exportID, schoolID, path string) (string, time.Time, error)
	Verify(token string) (storage.DownloadGrant, error)
}

type taskSubmitter interface {
	Submit(ctx context.Context, task jobs.Task) error
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled   bool
	APIPrefix string
	// ResultTTL is how long finished files stay downloadable.
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload is an opened export file ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService accepts export requests and serves their results.
type ExportService struct {
	repo      exportJobRepository
	years     yearLookup
	storage   exportStorage
	signer    downloadSigner
	queue     taskSubmitter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. The queue may be attached later with UseQueue.
func NewExportService(repo exportJobRepository, years yearLookup, store exportStorage, signer downloadSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:      repo,
		years:     years,
		storage:   store,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// UseQueue sets the queue that export tasks are submitted to.
func (s *ExportService) UseQueue(queue taskSubmitter) {
	s.queue = queue
}

// Create records a queued export of a year's assignments and submits it.
func (s *ExportService) Create(ctx context.Context, actor *models.Profile, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if !s.cfg.Enabled || s.queue == nil {
		return nil, appErrors.ErrFeatureDisabled
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export payload")
	}
	if _, err := s.years.FindByID(ctx, actor.SchoolID, req.AcademicYearID); err != nil {
		return nil, notFoundOr(s.logger, err, "academic year", "load academic year")
	}

	job := &models.ExportJob{
		SchoolID:       actor.SchoolID,
		AcademicYearID: req.AcademicYearID,
		Format:         req.Format,
		Status:         models.ExportQueued,
		RequestedBy:    actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		s.logger.Error("create export job", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to create export job")
	}
	if err := s.queue.Submit(ctx, exportTask(job)); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue export", s.now().UTC()); markErr != nil {
			s.logger.Warn("mark export failed", zap.String("export_id", job.ID), zap.Error(markErr))
		}
		s.logger.Error("enqueue export job", zap.String("export_id", job.ID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to enqueue export job")
	}
	return s.response(job), nil
}

// Status reports job progress and a signed link once the file is ready.
func (s *ExportService) Status(ctx context.Context, schoolID, id string) (*dto.ExportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "export job", "load export job")
	}
	return s.response(job), nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(ctx context.Context, token string) (*ExportDownload, error) {
	grant, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.repo.FindByID(ctx, grant.SchoolID, grant.ExportID)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "export job", "load export job")
	}
	if job.Status != models.ExportFinished || job.FilePath == nil || *job.FilePath != grant.Path {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file is no longer available")
	}
	file, err := s.storage.Open(grant.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file is no longer available")
		}
		s.logger.Error("open export file", zap.String("export_id", job.ID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	contentType := "text/csv"
	if job.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	return &ExportDownload{File: file, Filename: filepath.Base(grant.Path), ContentType: contentType}, nil
}

// RecoverPending resubmits jobs left queued by a previous process.
func (s *ExportService) RecoverPending(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.repo.ListQueued(ctx, 100)
	if err != nil {
		s.logger.Warn("recover queued exports", zap.Error(err))
		return
	}
	for i := range pending {
		if err := s.queue.Submit(ctx, exportTask(&pending[i])); err != nil {
			s.logger.Warn("requeue export", zap.String("export_id", pending[i].ID), zap.Error(err))
		}
	}
	if len(pending) > 0 {
		s.logger.Info("queued exports recovered", zap.Int("count", len(pending)))
	}
}

// StartCleanup purges expired files every CleanupInterval until ctx ends.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()
}

// Cleanup deletes files of jobs older than ResultTTL plus any orphaned files
// and returns how many files were removed.
func (s *ExportService) Cleanup(ctx context.Context) int {
	now := s.now()
	removed := 0
	paths, err := s.repo.ClearFilesBefore(ctx, now.Add(-s.cfg.ResultTTL))
	if err != nil {
		s.logger.Warn("clear expired exports", zap.Error(err))
	}
	for _, path := range paths {
		if err := s.storage.Delete(path); err != nil {
			s.logger.Warn("delete expired export", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	orphans, err := s.storage.RemoveOlderThan(s.cfg.ResultTTL, now)
	if err != nil {
		s.logger.Warn("remove stale export files", zap.Error(err))
	}
	removed += len(orphans)
	if removed > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", removed))
	}
	return removed
}

func (s *ExportService) response(job *models.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		ID:       job.ID,
		Status:   job.Status,
		Format:   job.Format,
		RowCount: job.RowCount,
		Error:    job.ErrorMessage,
	}
	if job.Status != models.ExportFinished || job.FilePath == nil {
		return resp
	}
	token, expiresAt, err := s.signer.Sign(job.ID, job.SchoolID, *job.FilePath)
	if err != nil {
		s.logger.Warn("sign export download", zap.String("export_id", job.ID), zap.Error(err))
		return resp
	}
	url := strings.TrimRight(s.cfg.APIPrefix, "/") + "/fees/exports/download/" + token
	resp.DownloadURL = &url
	resp.ExpiresAt = &expiresAt
	return resp
}

func exportTask(job *models.ExportJob) jobs.Task {
	return jobs.Task{ID: job.ID, Kind: exportTaskKind, Payload: job.SchoolID}
}
