package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error)
	ListAll(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, error)
}

type assignmentRepository interface {
	ExistingKeys(ctx context.Context, schoolID, structureID string, scheduleIDs []string) ([]models.AssignmentKey, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, assignments []models.StudentFeeAssignment) (int64, error)
	List(ctx context.Context, schoolID string, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
}

type scheduleFinder interface {
	FindByIDs(ctx context.Context, structureID string, ids []string) ([]models.PaymentSchedule, error)
}

// AssignmentService resolves which students owe a structure and writes
// the resulting assignments.
type AssignmentService struct {
	students     studentRepository
	assignments  assignmentRepository
	structures   structureLookup
	schedules    scheduleFinder
	audit        auditRecorder
	tx           txProvider
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	previewLimit int
}

// AssignmentServiceParams groups the collaborators of AssignmentService.
type AssignmentServiceParams struct {
	Students     studentRepository
	Assignments  assignmentRepository
	Structures   structureLookup
	Schedules    scheduleFinder
	Audit        auditRecorder
	Tx           txProvider
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
	PreviewLimit int
}

// NewAssignmentService constructs the service.
func NewAssignmentService(p AssignmentServiceParams) *AssignmentService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.PreviewLimit <= 0 {
		p.PreviewLimit = 50
	}
	return &AssignmentService{
		students:     p.Students,
		assignments:  p.Assignments,
		structures:   p.Structures,
		schedules:    p.Schedules,
		audit:        p.Audit,
		tx:           p.Tx,
		metrics:      p.Metrics,
		validator:    p.Validator,
		logger:       p.Logger,
		previewLimit: p.PreviewLimit,
	}
}

type pendingAssignment struct {
	student  models.Student
	schedule models.PaymentSchedule
}

// AutoAssign previews or commits assignments of a structure to every
// matching student for each selected schedule. Pairs that already exist are
// never written again.
func (s *AssignmentService) AutoAssign(ctx context.Context, actor *models.Profile, req dto.AutoAssignRequest) (*dto.AutoAssignResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "academic_year_id, template_id and schedule_ids are required")
	}
	defer s.metrics.ObserveAutoAssign(req.DryRun, time.Now())
	scheduleIDs := uniqueStrings(req.ScheduleIDs)

	template, err := s.structures.FindByID(ctx, actor.SchoolID, req.TemplateID)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "fee structure", "load fee structure")
	}
	if template.AcademicYearID != req.AcademicYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "template does not belong to the academic year")
	}
	if !(models.TemplateFilter{ProgramType: req.ProgramType}).Matches(template) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("template is not offered for program type %q", req.ProgramType))
	}

	found, err := s.schedules.FindByIDs(ctx, template.ID, scheduleIDs)
	if err != nil {
		s.logger.Error("load payment schedules", zap.String("structure_id", template.ID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load payment schedules")
	}
	byID := make(map[string]models.PaymentSchedule, len(found))
	for _, schedule := range found {
		byID[schedule.ID] = schedule
	}
	schedules := make([]models.PaymentSchedule, 0, len(scheduleIDs))
	for _, id := range scheduleIDs {
		schedule, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule %s does not belong to the template", id))
		}
		schedules = append(schedules, schedule)
	}

	studentFilter := models.StudentFilter{GradeLevel: req.GradeLevel, ActiveOnly: true}
	if studentFilter.GradeLevel == "" && template.AppliesTo == models.AppliesToGrade {
		studentFilter.GradeLevel = template.GradeLevel
	}
	students, err := s.students.ListAll(ctx, actor.SchoolID, studentFilter)
	if err != nil {
		s.logger.Error("list students", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list students")
	}

	keys, err := s.assignments.ExistingKeys(ctx, actor.SchoolID, template.ID, scheduleIDs)
	if err != nil {
		s.logger.Error("load existing assignments", zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load existing assignments")
	}
	existing := make(map[models.AssignmentKey]struct{}, len(keys))
	for _, key := range keys {
		existing[key] = struct{}{}
	}

	var pending []pendingAssignment
	existingCount := 0
	for _, student := range students {
		for _, schedule := range schedules {
			if _, ok := existing[models.AssignmentKey{StudentID: student.ID, ScheduleID: schedule.ID}]; ok {
				existingCount++
				continue
			}
			pending = append(pending, pendingAssignment{student: student, schedule: schedule})
		}
	}

	result := &dto.AutoAssignResult{
		DryRun: req.DryRun,
		Summary: dto.AutoAssignSummary{
			TotalStudents:       len(students),
			NewAssignments:      len(pending),
			ExistingAssignments: existingCount,
			TotalAssignments:    len(students) * len(schedules),
			SchedulesCount:      len(schedules),
		},
	}

	if req.DryRun {
		limit := s.previewLimit
		if limit > len(pending) {
			limit = len(pending)
		}
		result.Preview = make([]dto.AssignmentPreviewRow, limit)
		for i, p := range pending[:limit] {
			result.Preview[i] = dto.AssignmentPreviewRow{
				StudentID:           p.student.ID,
				StudentName:         p.student.FullName,
				GradeLevel:          p.student.GradeLevel,
				ScheduleID:          p.schedule.ID,
				ScheduleName:        p.schedule.Name,
				TemplateTotalAmount: template.TotalAmount,
			}
		}
		result.Remaining = len(pending) - limit
		return result, nil
	}

	if len(pending) == 0 {
		result.Message = "all matching students are already assigned"
		return result, nil
	}

	rows := make([]models.StudentFeeAssignment, len(pending))
	for i, p := range pending {
		rows[i] = models.StudentFeeAssignment{
			SchoolID:       actor.SchoolID,
			StudentID:      p.student.ID,
			StructureID:    template.ID,
			ScheduleID:     p.schedule.ID,
			AcademicYearID: template.AcademicYearID,
			TotalDue:       scheduleDue(p.schedule, template.TotalAmount),
			PaidAmount:     decimal.Zero,
			Status:         models.AssignmentActive,
			CreatedBy:      strPtr(actor.UserID),
		}
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		created, err := s.assignments.BulkInsert(ctx, tx, rows)
		if err != nil {
			s.logger.Error("insert fee assignments", zap.String("structure_id", template.ID), zap.Error(err))
			return appErrors.Internal(err, "failed to create fee assignments")
		}
		result.Created = created
		entry := auditEntry(actor, &template.AcademicYearID, models.AuditAutoAssignCommit, "fee_structure", template.ID, map[string]interface{}{
			"schedule_ids": scheduleIDs,
			"grade_level":  studentFilter.GradeLevel,
			"requested":    len(rows),
			"created":      created,
		})
		if err := s.audit.Record(ctx, tx, entry); err != nil {
			s.logger.Error("record auto-assign audit", zap.Error(err))
			return appErrors.Internal(err, "failed to record auto-assign audit")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAssignments(result.Created)
	result.Message = fmt.Sprintf("%d fee assignments created", result.Created)
	if skipped := int64(len(rows)) - result.Created; skipped > 0 {
		s.logger.Info("auto-assign skipped concurrently created pairs", zap.Int64("skipped", skipped), zap.String("structure_id", template.ID))
	}
	return result, nil
}

// List returns a page of assignments with their outstanding balance.
func (s *AssignmentService) List(ctx context.Context, schoolID string, filter models.AssignmentFilter) ([]dto.AssignmentView, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	switch filter.Status {
	case "", models.AssignmentActive, models.AssignmentCompleted, models.AssignmentCancelled:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be active, completed or cancelled")
	}
	rows, total, err := s.assignments.List(ctx, schoolID, filter)
	if err != nil {
		s.logger.Error("list fee assignments", zap.Error(err))
		return nil, nil, appErrors.Internal(err, "failed to list fee assignments")
	}
	views := make([]dto.AssignmentView, len(rows))
	for i, row := range rows {
		views[i] = dto.AssignmentView{AssignmentDetail: row, Balance: row.Balance()}
	}
	return views, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// scheduleDue is what a student owes under schedule: the installment sum
// when the schedule has installments, otherwise the structure total.
func scheduleDue(schedule models.PaymentSchedule, fallback decimal.Decimal) decimal.Decimal {
	if len(schedule.Installments) == 0 {
		return fallback
	}
	sum := decimal.Zero
	for _, inst := range schedule.Installments {
		sum = sum.Add(inst.Amount)
	}
	return sum
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
