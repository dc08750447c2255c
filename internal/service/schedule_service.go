package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/feeplan"
	"github.com/noah-isme/school-fees-api/internal/feewizard"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type paymentScheduleRepository interface {
	ListByStructure(ctx context.Context, structureID string) ([]models.PaymentSchedule, error)
	FindByIDs(ctx context.Context, structureID string, ids []string) ([]models.PaymentSchedule, error)
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.PaymentSchedule) error
}

type structureLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.FeeStructure, error)
}

type yearLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error)
}

type termLister interface {
	ListByYear(ctx context.Context, schoolID, yearID string) ([]models.AcademicTerm, error)
}

// ScheduleService manages payment schedules and previews default plans.
type ScheduleService struct {
	schedules  paymentScheduleRepository
	structures structureLookup
	years      yearLookup
	terms      termLister
	audit      auditRecorder
	tx         txProvider
	validator  *validator.Validate
	logger     *zap.Logger
}

// ScheduleServiceParams groups the collaborators of ScheduleService.
type ScheduleServiceParams struct {
	Schedules  paymentScheduleRepository
	Structures structureLookup
	Years      yearLookup
	Terms      termLister
	Audit      auditRecorder
	Tx         txProvider
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// NewScheduleService constructs a schedule service.
func NewScheduleService(p ScheduleServiceParams) *ScheduleService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules:  p.Schedules,
		structures: p.Structures,
		years:      p.Years,
		terms:      p.Terms,
		audit:      p.Audit,
		tx:         p.Tx,
		validator:  p.Validator,
		logger:     p.Logger,
	}
}

// Preview runs the installment calculator without touching storage.
func (s *ScheduleService) Preview(req dto.PaymentPlanPreviewRequest) (*feeplan.Plan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payment plan payload")
	}
	scheduleType, ok := models.ParseScheduleType(req.ScheduleType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown schedule type %q", req.ScheduleType))
	}
	var dates feeplan.Dates
	if req.StartDate != "" {
		start, err := parseDate("start_date", req.StartDate)
		if err != nil {
			return nil, err
		}
		dates.Start = start
	}
	if req.EndDate != "" {
		end, err := parseDate("end_date", req.EndDate)
		if err != nil {
			return nil, err
		}
		dates.End = end
	}
	plan, err := feeplan.Generate(scheduleType, req.TotalAmount, req.DiscountPercentage, dates)
	if err != nil {
		return nil, planError(err)
	}
	return &plan, nil
}

// List returns the schedules of a structure with their percentage checks.
func (s *ScheduleService) List(ctx context.Context, schoolID, structureID string) ([]dto.ScheduleView, error) {
	if _, err := s.structures.FindByID(ctx, schoolID, structureID); err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "load fee structure")
	}
	schedules, err := s.schedules.ListByStructure(ctx, structureID)
	if err != nil {
		s.logger.Error("list payment schedules", zap.String("structure_id", structureID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list payment schedules")
	}
	views := make([]dto.ScheduleView, len(schedules))
	for i, schedule := range schedules {
		views[i] = scheduleView(schedule)
	}
	return views, nil
}

// Create adds a schedule to a structure. Default installments come from the calculator.
func (s *ScheduleService) Create(ctx context.Context, actor *models.Profile, structureID string, req dto.ScheduleRequest) (*dto.ScheduleView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payment schedule payload")
	}
	structure, err := s.structures.FindByID(ctx, actor.SchoolID, structureID)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "load fee structure")
	}
	dates, err := s.planDates(ctx, actor.SchoolID, structure.AcademicYearID)
	if err != nil {
		return nil, err
	}
	schedule, err := buildSchedule(req, structure.ID, structure.TotalAmount, dates)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.schedules.Create(ctx, tx, schedule); err != nil {
			s.logger.Error("create payment schedule", zap.String("structure_id", structureID), zap.Error(err))
			return appErrors.Internal(err, "failed to create payment schedule")
		}
		entry := auditEntry(actor, &structure.AcademicYearID, models.AuditScheduleCreate, "payment_schedule", schedule.ID, map[string]interface{}{
			"structure_id":  structure.ID,
			"schedule_type": schedule.ScheduleType,
			"installments":  len(schedule.Installments),
		})
		if err := s.audit.Record(ctx, tx, entry); err != nil {
			s.logger.Error("record schedule audit", zap.Error(err))
			return appErrors.Internal(err, "failed to record payment schedule audit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := scheduleView(*schedule)
	return &view, nil
}

// planDates anchors due dates on the year and its terms.
func (s *ScheduleService) planDates(ctx context.Context, schoolID, yearID string) (feeplan.Dates, error) {
	return resolvePlanDates(ctx, s.years, s.terms, s.logger, schoolID, yearID)
}

func resolvePlanDates(ctx context.Context, years yearLookup, terms termLister, logger *zap.Logger, schoolID, yearID string) (feeplan.Dates, error) {
	year, err := years.FindByID(ctx, schoolID, yearID)
	if err != nil {
		return feeplan.Dates{}, notFoundOr(logger, err, "academic year", "load academic year")
	}
	dates := feeplan.Dates{Start: year.StartDate, End: year.EndDate}
	list, err := terms.ListByYear(ctx, schoolID, yearID)
	if err != nil {
		logger.Error("list academic terms", zap.String("academic_year_id", yearID), zap.Error(err))
		return feeplan.Dates{}, appErrors.Internal(err, "failed to list academic terms")
	}
	for _, term := range list {
		dates.TermStarts = append(dates.TermStarts, term.StartDate)
	}
	return dates, nil
}

var hundredPercent = decimal.NewFromInt(100)

// buildSchedule turns a schedule request into a schedule with installments
// priced against total.
func buildSchedule(req dto.ScheduleRequest, structureID string, total decimal.Decimal, dates feeplan.Dates) (*models.PaymentSchedule, error) {
	scheduleType, ok := models.ParseScheduleType(req.ScheduleType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown schedule type %q", req.ScheduleType))
	}
	if scheduleType != models.ScheduleCustom && len(req.Installments) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "installments may only be supplied for custom schedules")
	}
	if scheduleType == models.ScheduleCustom && len(req.Installments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "custom schedules require at least one installment")
	}

	plan, err := feeplan.Generate(scheduleType, total, req.DiscountPercentage, dates)
	if err != nil {
		return nil, planError(err)
	}
	installments := plan.Installments
	if scheduleType == models.ScheduleCustom {
		custom := make([]feeplan.Installment, len(req.Installments))
		for i, inst := range req.Installments {
			if inst.Amount.IsNegative() || inst.Percentage.IsNegative() {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("installments[%d] amount and percentage must not be negative", i))
			}
			custom[i] = feeplan.Installment{Label: strings.TrimSpace(inst.Label), Amount: inst.Amount, Percentage: inst.Percentage}
			if inst.DueDate != "" {
				due, err := parseDate(fmt.Sprintf("installments[%d].due_date", i), inst.DueDate)
				if err != nil {
					return nil, err
				}
				custom[i].DueDate = &due
			}
		}
		installments = feeplan.Custom(plan.Payable, custom)
		for i, inst := range installments {
			if inst.Percentage.GreaterThan(hundredPercent) || inst.Amount.GreaterThan(plan.Payable) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("installments[%d] exceeds the payable total %s", i, plan.Payable.StringFixed(2)))
			}
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = feewizard.DefaultScheduleName(scheduleType)
	}
	schedule := &models.PaymentSchedule{
		StructureID:        structureID,
		Name:               name,
		ScheduleType:       scheduleType,
		DiscountPercentage: req.DiscountPercentage,
		CreatedAt:          time.Now().UTC(),
		Installments:       make([]models.PaymentInstallment, len(installments)),
	}
	for i, inst := range installments {
		schedule.Installments[i] = models.PaymentInstallment{
			InstallmentNumber: inst.Number,
			Label:             inst.Label,
			Amount:            inst.Amount,
			Percentage:        inst.Percentage,
			DueDate:           inst.DueDate,
		}
	}
	return schedule, nil
}

func scheduleView(schedule models.PaymentSchedule) dto.ScheduleView {
	parts := make([]feeplan.Installment, len(schedule.Installments))
	for i, inst := range schedule.Installments {
		parts[i] = feeplan.Installment{Percentage: inst.Percentage}
	}
	total, balanced := feeplan.Check(parts)
	return dto.ScheduleView{PaymentSchedule: schedule, PercentageTotal: total, Balanced: balanced}
}

func planError(err error) error {
	switch {
	case errors.Is(err, feeplan.ErrNegativeTotal),
		errors.Is(err, feeplan.ErrInvalidDiscount),
		errors.Is(err, feeplan.ErrDiscountNotAllow),
		errors.Is(err, feeplan.ErrUnknownType):
		return appErrors.Validation(err, err.Error())
	}
	return appErrors.Internal(err, "failed to compute payment plan")
}
