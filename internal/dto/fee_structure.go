package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// FeeItemRequest is one line of a structure submission.
type FeeItemRequest struct {
	CategoryID   string          `json:"category_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	IsMandatory  bool            `json:"is_mandatory"`
	IsRecurring  bool            `json:"is_recurring"`
	PaymentModes []string        `json:"payment_modes" validate:"required,min=1,dive,oneof=one_time termly installment monthly"`
}

// InstallmentRequest is a caller supplied installment of a custom schedule.
type InstallmentRequest struct {
	Label      string          `json:"label" validate:"required,max=100"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	DueDate    string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// ScheduleRequest creates a payment schedule for a structure.
type ScheduleRequest struct {
	Name               string               `json:"name" validate:"omitempty,max=100"`
	ScheduleType       string               `json:"schedule_type" validate:"required"`
	DiscountPercentage decimal.Decimal      `json:"discount_percentage"`
	Installments       []InstallmentRequest `json:"installments" validate:"omitempty,dive"`
}

// CreateFeeStructureRequest is the POST /fees/structures payload.
type CreateFeeStructureRequest struct {
	Name            string           `json:"name" validate:"required,max=150"`
	AcademicYearID  string           `json:"academic_year_id" validate:"required"`
	GradeLevel      string           `json:"grade_level" validate:"max=50"`
	AppliesTo       models.AppliesTo `json:"applies_to" validate:"required,oneof=school grade"`
	ProgramType     *string          `json:"program_type" validate:"omitempty,max=50"`
	Currency        string           `json:"currency" validate:"omitempty,len=3,alpha"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	IsActive        *bool            `json:"is_active"`
	Items           []FeeItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentSchedule *ScheduleRequest `json:"payment_schedule" validate:"omitempty"`
}

// DraftStructureRequest feeds the structure builder without persisting anything.
type DraftStructureRequest struct {
	AcademicYearID  string           `json:"academic_year_id"`
	AppliesTo       models.AppliesTo `json:"applies_to"`
	GradeLevel      string           `json:"grade_level"`
	ProgramType     string           `json:"program_type"`
	Currency        string           `json:"currency"`
	Name            string           `json:"name"`
	Items           []FeeItemRequest `json:"items"`
	PaymentSchedule *ScheduleRequest `json:"payment_schedule"`
}

// CategorySubtotal is one category line of the builder totals.
type CategorySubtotal struct {
	CategoryID   string              `json:"category_id"`
	CategoryName string              `json:"category_name"`
	CategoryType models.CategoryType `json:"category_type"`
	Amount       decimal.Decimal     `json:"amount"`
}

// StructureTotals are the running totals shown while building a structure.
type StructureTotals struct {
	TuitionTotal    decimal.Decimal    `json:"tuition_total"`
	AdditionalTotal decimal.Decimal    `json:"additional_total"`
	GrandTotal      decimal.Decimal    `json:"grand_total"`
	Categories      []CategorySubtotal `json:"categories"`
}

// FieldIssue describes one rejected builder input.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DraftResult is returned by POST /fees/structures/draft.
type DraftResult struct {
	Name       string                     `json:"name"`
	Totals     StructureTotals            `json:"totals"`
	Complete   bool                       `json:"complete"`
	Missing    []string                   `json:"missing,omitempty"`
	Issues     []FieldIssue               `json:"issues,omitempty"`
	Submission *CreateFeeStructureRequest `json:"submission,omitempty"`
}

// PaymentPlanPreviewRequest asks the calculator for a default breakdown.
type PaymentPlanPreviewRequest struct {
	ScheduleType       string          `json:"schedule_type" validate:"required"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartDate          string          `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate            string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// ScheduleView wraps a persisted schedule with its percentage check.
type ScheduleView struct {
	models.PaymentSchedule
	PercentageTotal decimal.Decimal `json:"percentage_total"`
	Balanced        bool            `json:"balanced"`
}
