package feewizard

import (
	"errors"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
)

// Evaluate replays a draft request through the builder in wizard order and
// reports totals, rejected inputs and, when complete, the submission.
func Evaluate(b *Builder, yearName string, req dto.DraftStructureRequest) dto.DraftResult {
	var issues []dto.FieldIssue
	record := func(err error) {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			issues = append(issues, dto.FieldIssue{Field: vErr.Field, Message: vErr.Message})
		}
	}

	if req.AcademicYearID != "" || req.AppliesTo != "" {
		record(b.SetAcademicContext(AcademicContext{
			AcademicYearID: req.AcademicYearID,
			YearName:       yearName,
			AppliesTo:      req.AppliesTo,
			GradeLevel:     req.GradeLevel,
			ProgramType:    req.ProgramType,
			Currency:       req.Currency,
		}))
	}
	if req.Name != "" {
		b.SetName(req.Name)
	}
	for _, item := range req.Items {
		modes := make([]models.PaymentMode, len(item.PaymentModes))
		for i, m := range item.PaymentModes {
			modes[i] = models.PaymentMode(m)
		}
		record(b.AddOrUpdateItem(Item{
			CategoryID:   item.CategoryID,
			Amount:       item.Amount,
			IsMandatory:  item.IsMandatory,
			IsRecurring:  item.IsRecurring,
			PaymentModes: modes,
		}))
	}
	if req.PaymentSchedule != nil {
		record(b.SetPaymentSchedule(Schedule{
			Name:               req.PaymentSchedule.Name,
			Type:               models.ScheduleType(req.PaymentSchedule.ScheduleType),
			DiscountPercentage: req.PaymentSchedule.DiscountPercentage,
		}))
	}

	result := dto.DraftResult{
		Name:   b.Snapshot().Name,
		Totals: b.ComputeTotals(),
		Issues: issues,
	}
	submission, err := b.ToSubmission()
	var incomplete *IncompleteDraftError
	switch {
	case errors.As(err, &incomplete):
		result.Missing = incomplete.Missing
	case err == nil && len(issues) == 0:
		result.Complete = true
		result.Submission = submission
	}
	return result
}
