package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// AutoAssignRequest is the POST /fees/auto-assign payload.
type AutoAssignRequest struct {
	AcademicYearID string   `json:"academic_year_id" validate:"required"`
	GradeLevel     string   `json:"grade_level" validate:"max=50"`
	ProgramType    string   `json:"program_type" validate:"max=50"`
	TemplateID     string   `json:"template_id" validate:"required"`
	ScheduleIDs    []string `json:"schedule_ids" validate:"required,min=1,dive,required"`
	DryRun         bool     `json:"dry_run"`
}

// AutoAssignSummary counts the student × schedule resolution.
type AutoAssignSummary struct {
	TotalStudents       int `json:"total_students"`
	NewAssignments      int `json:"new_assignments"`
	ExistingAssignments int `json:"existing_assignments"`
	TotalAssignments    int `json:"total_assignments"`
	SchedulesCount      int `json:"schedules_count"`
}

// AssignmentPreviewRow is one pending assignment shown in a dry run.
type AssignmentPreviewRow struct {
	StudentID           string          `json:"student_id"`
	StudentName         string          `json:"student_name"`
	GradeLevel          string          `json:"grade_level"`
	ScheduleID          string          `json:"schedule_id"`
	ScheduleName        string          `json:"schedule_name"`
	TemplateTotalAmount decimal.Decimal `json:"template_total_amount"`
}

// AutoAssignResult is returned for both dry runs and commits.
type AutoAssignResult struct {
	DryRun    bool                   `json:"dry_run"`
	Summary   AutoAssignSummary      `json:"summary"`
	Preview   []AssignmentPreviewRow `json:"preview,omitempty"`
	Remaining int                    `json:"remaining,omitempty"`
	Created   int64                  `json:"created"`
	Message   string                 `json:"message,omitempty"`
}

// AssignmentView adds the outstanding balance to an assignment.
type AssignmentView struct {
	models.AssignmentDetail
	Balance decimal.Decimal `json:"balance"`
}

// RecordPaymentRequest is the POST /fees/assignments/:id/payments payload.
type RecordPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod     string          `json:"payment_method" validate:"required,oneof=cash bank_transfer card mobile_money cheque"`
	InstallmentNumber *int            `json:"installment_number" validate:"omitempty,gte=1"`
	Reference         *string         `json:"reference" validate:"omitempty,max=100"`
}

// PaymentResult returns the stored payment and the updated assignment.
type PaymentResult struct {
	Payment    models.StudentFeePayment    `json:"payment"`
	Assignment models.StudentFeeAssignment `json:"assignment"`
	Balance    decimal.Decimal             `json:"balance"`
}
