package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/database"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context, schoolID string, page, size int) ([]models.AcademicYear, int, error)
	Stats(ctx context.Context, schoolID string) (models.AcademicYearStats, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error)
	ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, year *models.AcademicYear) error
	Update(ctx context.Context, exec sqlx.ExtContext, year *models.AcademicYear) error
	DeactivateOthers(ctx context.Context, exec sqlx.ExtContext, schoolID, keepID string) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) error
}

type termRepository interface {
	ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AcademicTerm, error)
	Create(ctx context.Context, term *models.AcademicTerm) error
}

type feeCascadeRepository interface {
	DeleteAcademicYear(ctx context.Context, schoolID, yearID string) (dto.DeletionSummary, error)
	DeleteFeeStructure(ctx context.Context, schoolID, structureID string) (dto.DeletionSummary, error)
}

// AcademicYearService manages academic years and their terms.
type AcademicYearService struct {
	years     academicYearRepository
	terms     termRepository
	cascade   feeCascadeRepository
	audit     auditRecorder
	tx        txProvider
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// AcademicYearServiceParams groups the collaborators of AcademicYearService.
type AcademicYearServiceParams struct {
	Years     academicYearRepository
	Terms     termRepository
	Cascade   feeCascadeRepository
	Audit     auditRecorder
	Tx        txProvider
	Cache     *CacheService
	CacheTTL  time.Duration
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewAcademicYearService constructs the service.
func NewAcademicYearService(p AcademicYearServiceParams) *AcademicYearService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &AcademicYearService{
		years:     p.Years,
		terms:     p.Terms,
		cascade:   p.Cascade,
		audit:     p.Audit,
		tx:        p.Tx,
		cache:     p.Cache,
		cacheTTL:  p.CacheTTL,
		validator: p.Validator,
		logger:    p.Logger,
	}
}

// List returns a page of years with school stats. The boolean reports a cache hit.
func (s *AcademicYearService) List(ctx context.Context, schoolID string, page, size int) (*dto.AcademicYearList, bool, error) {
	page, size = normalizePage(page, size)
	key := academicYearListKey(schoolID, page, size)

	var cached dto.AcademicYearList
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	years, total, err := s.years.List(ctx, schoolID, page, size)
	if err != nil {
		s.logger.Error("list academic years", zap.String("school_id", schoolID), zap.Error(err))
		return nil, false, appErrors.Internal(err, "failed to list academic years")
	}
	stats, err := s.years.Stats(ctx, schoolID)
	if err != nil {
		s.logger.Error("academic year stats", zap.String("school_id", schoolID), zap.Error(err))
		return nil, false, appErrors.Internal(err, "failed to load academic year stats")
	}
	if years == nil {
		years = []models.AcademicYear{}
	}
	result := &dto.AcademicYearList{
		AcademicYears: years,
		Pagination:    models.NewPagination(page, size, total),
		Stats:         stats,
	}
	_ = s.cache.Set(ctx, key, result, s.cacheTTL)
	return result, false, nil
}

// Get returns one year of the school.
func (s *AcademicYearService) Get(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "academic year", "load academic year")
	}
	return year, nil
}

// Create inserts a year. An active year deactivates the others in the same transaction.
func (s *AcademicYearService) Create(ctx context.Context, actor *models.Profile, req dto.CreateAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid academic year payload")
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, actor.SchoolID, req.Name, ""); err != nil {
		return nil, err
	}

	year := &models.AcademicYear{
		SchoolID:      actor.SchoolID,
		Name:          req.Name,
		StartDate:     start,
		EndDate:       end,
		TermStructure: req.TermStructure,
		IsActive:      req.IsActive,
		CreatedBy:     strPtr(actor.UserID),
	}
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.years.Create(ctx, tx, year); err != nil {
			return s.storeError(err, "create academic year")
		}
		if year.IsActive {
			if err := s.years.DeactivateOthers(ctx, tx, actor.SchoolID, year.ID); err != nil {
				return s.storeError(err, "deactivate academic years")
			}
		}
		return s.record(ctx, tx, actor, year, models.AuditYearCreate)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.SchoolID)
	return year, nil
}

// Update replaces the mutable fields of a year.
func (s *AcademicYearService) Update(ctx context.Context, actor *models.Profile, id string, req dto.UpdateAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid academic year payload")
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	year, err := s.Get(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, actor.SchoolID, req.Name, id); err != nil {
		return nil, err
	}

	year.Name = req.Name
	year.StartDate = start
	year.EndDate = end
	year.TermStructure = req.TermStructure
	if req.IsActive != nil {
		year.IsActive = *req.IsActive
	}
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.years.Update(ctx, tx, year); err != nil {
			return notFoundOr(s.logger, err, "academic year", "update academic year")
		}
		if year.IsActive {
			if err := s.years.DeactivateOthers(ctx, tx, actor.SchoolID, year.ID); err != nil {
				return s.storeError(err, "deactivate academic years")
			}
		}
		return s.record(ctx, tx, actor, year, models.AuditYearUpdate)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.SchoolID)
	return year, nil
}

// Activate makes id the single active year of the school.
func (s *AcademicYearService) Activate(ctx context.Context, actor *models.Profile, id string) (*models.AcademicYear, error) {
	year, err := s.Get(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, err
	}
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.years.DeactivateOthers(ctx, tx, actor.SchoolID, id); err != nil {
			return s.storeError(err, "deactivate academic years")
		}
		if err := s.years.SetActive(ctx, tx, actor.SchoolID, id); err != nil {
			return notFoundOr(s.logger, err, "academic year", "activate academic year")
		}
		return s.record(ctx, tx, actor, year, models.AuditYearActivate)
	})
	if err != nil {
		return nil, err
	}
	year.IsActive = true
	s.invalidate(ctx, actor.SchoolID)
	return year, nil
}

// Delete removes the year and everything it owns in one transaction.
func (s *AcademicYearService) Delete(ctx context.Context, actor *models.Profile, id string) (*dto.DeletionSummary, error) {
	summary, err := s.cascade.DeleteAcademicYear(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger.With(zap.String("academic_year_id", id)), err, "academic year", "delete academic year")
	}
	s.logger.Info("academic year deleted",
		zap.String("academic_year_id", id),
		zap.String("actor_id", actor.UserID),
		zap.Int64("structures", summary.Structures),
		zap.Int64("assignments", summary.Assignments),
		zap.Int64("payments", summary.Payments),
	)
	s.invalidate(ctx, actor.SchoolID)
	return &summary, nil
}

// ListTerms returns the terms of a year ordered by number.
func (s *AcademicYearService) ListTerms(ctx context.Context, schoolID, yearID string) ([]models.AcademicTerm, error) {
	if _, err := s.Get(ctx, schoolID, yearID); err != nil {
		return nil, err
	}
	terms, err := s.terms.ListByYear(ctx, schoolID, yearID)
	if err != nil {
		s.logger.Error("list academic terms", zap.String("academic_year_id", yearID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list academic terms")
	}
	if terms == nil {
		terms = []models.AcademicTerm{}
	}
	return terms, nil
}

// CreateTerm adds a term that must fall inside its year.
func (s *AcademicYearService) CreateTerm(ctx context.Context, actor *models.Profile, yearID string, req dto.CreateTermRequest) (*models.AcademicTerm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid term payload")
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	year, err := s.Get(ctx, actor.SchoolID, yearID)
	if err != nil {
		return nil, err
	}
	if start.Before(year.StartDate) || end.After(year.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term dates must fall within the academic year")
	}

	term := &models.AcademicTerm{
		SchoolID:       actor.SchoolID,
		AcademicYearID: yearID,
		Name:           req.Name,
		TermNumber:     req.TermNumber,
		StartDate:      start,
		EndDate:        end,
	}
	if err := s.terms.Create(ctx, term); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "term number already exists for academic year")
		}
		return nil, s.storeError(err, "create academic term")
	}
	return term, nil
}

func (s *AcademicYearService) ensureUniqueName(ctx context.Context, schoolID, name, excludeID string) error {
	exists, err := s.years.ExistsByName(ctx, schoolID, name, excludeID)
	if err != nil {
		return s.storeError(err, "check academic year name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "academic year name already exists")
	}
	return nil
}

func (s *AcademicYearService) record(ctx context.Context, tx *sqlx.Tx, actor *models.Profile, year *models.AcademicYear, action string) error {
	entry := auditEntry(actor, &year.ID, action, "academic_year", year.ID, map[string]interface{}{
		"name":      year.Name,
		"is_active": year.IsActive,
	})
	if err := s.audit.Record(ctx, tx, entry); err != nil {
		return s.storeError(err, "record academic year audit")
	}
	return nil
}

func (s *AcademicYearService) storeError(err error, action string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "academic year name already exists")
	}
	s.logger.Error(action, zap.Error(err))
	return appErrors.Internal(err, "failed to "+action)
}

func (s *AcademicYearService) invalidate(ctx context.Context, schoolID string) {
	_ = s.cache.Invalidate(ctx, academicYearListPattern(schoolID))
}

func parseRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := parseDate("start_date", rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end_date", rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	return start, end, nil
}
