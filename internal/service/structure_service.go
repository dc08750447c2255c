package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/feewizard"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/database"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

// feeStructureScopeKey is the unique index over (academic_year_id, grade_level, applies_to).
const feeStructureScopeKey = "fee_structures_scope_key"

type feeStructureRepository interface {
	List(ctx context.Context, schoolID string, filter models.StructureFilter) ([]models.FeeStructure, int, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.FeeStructure, error)
	FindByScope(ctx context.Context, schoolID, yearID, gradeLevel string, appliesTo models.AppliesTo) (*models.FeeStructure, error)
	Create(ctx context.Context, exec sqlx.ExtContext, structure *models.FeeStructure) error
	InsertItems(ctx context.Context, exec sqlx.ExtContext, structureID string, items []models.FeeStructureItem) error
	ListItems(ctx context.Context, structureIDs []string) ([]models.FeeStructureItem, error)
	SetPublished(ctx context.Context, schoolID, id string) error
}

// StructureService creates, publishes and deletes fee structures.
type StructureService struct {
	structures feeStructureRepository
	schedules  paymentScheduleRepository
	categories feeCategoryRepository
	years      yearLookup
	terms      termLister
	cascade    feeCascadeRepository
	audit      auditRecorder
	tx         txProvider
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	currency   string
	tolerance  decimal.Decimal
}

// StructureServiceParams groups the collaborators of StructureService.
type StructureServiceParams struct {
	Structures      feeStructureRepository
	Schedules       paymentScheduleRepository
	Categories      feeCategoryRepository
	Years           yearLookup
	Terms           termLister
	Cascade         feeCascadeRepository
	Audit           auditRecorder
	Tx              txProvider
	Cache           *CacheService
	Validator       *validator.Validate
	Logger          *zap.Logger
	DefaultCurrency string
	AmountTolerance float64
}

// NewStructureService constructs the service.
func NewStructureService(p StructureServiceParams) *StructureService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.DefaultCurrency == "" {
		p.DefaultCurrency = "USD"
	}
	if p.AmountTolerance <= 0 {
		p.AmountTolerance = 0.01
	}
	return &StructureService{
		structures: p.Structures,
		schedules:  p.Schedules,
		categories: p.Categories,
		years:      p.Years,
		terms:      p.Terms,
		cascade:    p.Cascade,
		audit:      p.Audit,
		tx:         p.Tx,
		cache:      p.Cache,
		validator:  p.Validator,
		logger:     p.Logger,
		currency:   strings.ToUpper(p.DefaultCurrency),
		tolerance:  decimal.NewFromFloat(p.AmountTolerance),
	}
}

// List returns a page of structures.
func (s *StructureService) List(ctx context.Context, schoolID string, filter models.StructureFilter) ([]models.FeeStructure, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	structures, total, err := s.structures.List(ctx, schoolID, filter)
	if err != nil {
		s.logger.Error("list fee structures", zap.String("school_id", schoolID), zap.Error(err))
		return nil, nil, appErrors.Internal(err, "failed to list fee structures")
	}
	if structures == nil {
		structures = []models.FeeStructure{}
	}
	return structures, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a structure with its items and schedules.
func (s *StructureService) Get(ctx context.Context, schoolID, id string) (*models.FeeStructure, error) {
	structure, err := s.structures.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "load fee structure")
	}
	items, err := s.structures.ListItems(ctx, []string{id})
	if err != nil {
		s.logger.Error("list fee structure items", zap.String("structure_id", id), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load fee structure items")
	}
	schedules, err := s.schedules.ListByStructure(ctx, id)
	if err != nil {
		s.logger.Error("list payment schedules", zap.String("structure_id", id), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load payment schedules")
	}
	structure.Items = items
	structure.Schedules = schedules
	return structure, nil
}

// Create validates scope uniqueness and the item sum, then persists the
// structure, its items and the optional default schedule atomically.
func (s *StructureService) Create(ctx context.Context, actor *models.Profile, req dto.CreateFeeStructureRequest) (*models.FeeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid fee structure payload")
	}
	gradeLevel := strings.TrimSpace(req.GradeLevel)
	switch req.AppliesTo {
	case models.AppliesToSchool:
		gradeLevel = models.AllGrades
	case models.AppliesToGrade:
		if gradeLevel == "" || gradeLevel == models.AllGrades {
			return nil, appErrors.Clone(appErrors.ErrValidation, "grade_level is required when applies_to is grade")
		}
	}

	sum := decimal.Zero
	seen := make(map[string]struct{}, len(req.Items))
	categoryIDs := make([]string, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Amount.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("items[%d].amount must not be negative", i))
		}
		if _, dup := seen[item.CategoryID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("items[%d] repeats category %s", i, item.CategoryID))
		}
		seen[item.CategoryID] = struct{}{}
		categoryIDs = append(categoryIDs, item.CategoryID)
		sum = sum.Add(item.Amount)
	}
	if req.TotalAmount.Sub(sum).Abs().GreaterThan(s.tolerance) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("total_amount %s does not match the sum of items %s", req.TotalAmount.StringFixed(2), sum.StringFixed(2)))
	}

	if _, err := s.years.FindByID(ctx, actor.SchoolID, req.AcademicYearID); err != nil {
		return nil, notFoundOr(s.logger, err, "academic year", "load academic year")
	}
	categories, err := s.categories.FindByIDs(ctx, actor.SchoolID, categoryIDs)
	if err != nil {
		s.logger.Error("load fee categories", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load fee categories")
	}
	if len(categories) != len(categoryIDs) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "items reference unknown fee categories")
	}

	existing, err := s.structures.FindByScope(ctx, actor.SchoolID, req.AcademicYearID, gradeLevel, req.AppliesTo)
	switch {
	case err == nil:
		return nil, scopeConflict(existing.Name)
	case !isNotFound(err):
		s.logger.Error("check fee structure scope", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to check fee structure scope")
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	structure := &models.FeeStructure{
		SchoolID:       actor.SchoolID,
		AcademicYearID: req.AcademicYearID,
		Name:           strings.TrimSpace(req.Name),
		GradeLevel:     gradeLevel,
		AppliesTo:      req.AppliesTo,
		ProgramType:    req.ProgramType,
		Currency:       currency,
		TotalAmount:    sum.Round(2),
		IsActive:       isActive,
		CreatedBy:      strPtr(actor.UserID),
	}
	items := make([]models.FeeStructureItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.FeeStructureItem{
			CategoryID:   item.CategoryID,
			Amount:       item.Amount.Round(2),
			IsMandatory:  item.IsMandatory,
			IsRecurring:  item.IsRecurring,
			PaymentModes: append([]string(nil), item.PaymentModes...),
		}
	}

	var schedule *models.PaymentSchedule
	if req.PaymentSchedule != nil {
		dates, err := resolvePlanDates(ctx, s.years, s.terms, s.logger, actor.SchoolID, req.AcademicYearID)
		if err != nil {
			return nil, err
		}
		if schedule, err = buildSchedule(*req.PaymentSchedule, "", structure.TotalAmount, dates); err != nil {
			return nil, err
		}
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.structures.Create(ctx, tx, structure); err != nil {
			if database.IsUniqueViolation(err, feeStructureScopeKey) {
				if winner, ferr := s.structures.FindByScope(ctx, actor.SchoolID, structure.AcademicYearID, gradeLevel, structure.AppliesTo); ferr == nil {
					return scopeConflict(winner.Name)
				}
				return scopeConflict(structure.Name)
			}
			s.logger.Error("create fee structure", zap.Error(err))
			return appErrors.Internal(err, "failed to create fee structure")
		}
		if err := s.structures.InsertItems(ctx, tx, structure.ID, items); err != nil {
			s.logger.Error("insert fee structure items", zap.String("structure_id", structure.ID), zap.Error(err))
			return appErrors.Internal(err, "failed to create fee structure items")
		}
		if schedule != nil {
			schedule.StructureID = structure.ID
			if err := s.schedules.Create(ctx, tx, schedule); err != nil {
				s.logger.Error("create payment schedule", zap.String("structure_id", structure.ID), zap.Error(err))
				return appErrors.Internal(err, "failed to create payment schedule")
			}
		}
		entry := auditEntry(actor, &structure.AcademicYearID, models.AuditStructureCreate, "fee_structure", structure.ID, map[string]interface{}{
			"name":         structure.Name,
			"grade_level":  structure.GradeLevel,
			"applies_to":   structure.AppliesTo,
			"total_amount": structure.TotalAmount,
			"items":        len(items),
		})
		if err := s.audit.Record(ctx, tx, entry); err != nil {
			s.logger.Error("record fee structure audit", zap.Error(err))
			return appErrors.Internal(err, "failed to record fee structure audit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	for i := range items {
		items[i].CategoryName = categoryNames[items[i].CategoryID]
	}
	structure.Items = items
	if schedule != nil {
		structure.Schedules = []models.PaymentSchedule{*schedule}
	}
	s.invalidate(ctx, actor.SchoolID)
	return structure, nil
}

// Draft replays a builder draft server-side without writing anything.
func (s *StructureService) Draft(ctx context.Context, schoolID string, req dto.DraftStructureRequest) (*dto.DraftResult, error) {
	categories, err := s.categories.List(ctx, schoolID)
	if err != nil {
		s.logger.Error("list fee categories", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list fee categories")
	}
	var yearName string
	if req.AcademicYearID != "" {
		year, err := s.years.FindByID(ctx, schoolID, req.AcademicYearID)
		if err != nil {
			return nil, notFoundOr(s.logger, err, "academic year", "load academic year")
		}
		yearName = year.Name
	}
	result := feewizard.Evaluate(feewizard.New(categories, s.currency), yearName, req)
	return &result, nil
}

// Publish marks a structure visible for assignment.
func (s *StructureService) Publish(ctx context.Context, actor *models.Profile, id string) (*models.FeeStructure, error) {
	structure, err := s.structures.FindByID(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "load fee structure")
	}
	if err := s.structures.SetPublished(ctx, actor.SchoolID, id); err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "publish fee structure")
	}
	structure.IsPublished = true
	entry := auditEntry(actor, &structure.AcademicYearID, models.AuditStructurePublish, "fee_structure", id, nil)
	if err := s.audit.Record(ctx, nil, entry); err != nil {
		s.logger.Warn("record publish audit", zap.String("structure_id", id), zap.Error(err))
	}
	s.invalidate(ctx, actor.SchoolID)
	return structure, nil
}

// Delete removes the structure and everything it owns in one transaction.
func (s *StructureService) Delete(ctx context.Context, actor *models.Profile, id string) (*dto.DeletionSummary, error) {
	structure, err := s.structures.FindByID(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "load fee structure")
	}
	summary, err := s.cascade.DeleteFeeStructure(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger.With(zap.String("structure_id", id)), err, "fee structure", "delete fee structure")
	}
	entry := auditEntry(actor, &structure.AcademicYearID, models.AuditStructureDelete, "fee_structure", id, summary)
	if err := s.audit.Record(ctx, nil, entry); err != nil {
		s.logger.Warn("record delete audit", zap.String("structure_id", id), zap.Error(err))
	}
	s.invalidate(ctx, actor.SchoolID)
	return &summary, nil
}

func (s *StructureService) invalidate(ctx context.Context, schoolID string) {
	_ = s.cache.Invalidate(ctx, academicYearListPattern(schoolID))
}

func scopeConflict(name string) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("fee structure %q already exists for this academic year and scope", name))
}
