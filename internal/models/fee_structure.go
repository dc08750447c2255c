package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// AllGrades is the grade level stored on school-wide structures.
const AllGrades = "All Grades"

// AppliesTo is the scope of a fee structure.
type AppliesTo string

const (
	AppliesToSchool AppliesTo = "school"
	AppliesToGrade  AppliesTo = "grade"
)

// PaymentMode is a way an item may be settled.
type PaymentMode string

const (
	PaymentModeOneTime     PaymentMode = "one_time"
	PaymentModeTermly      PaymentMode = "termly"
	PaymentModeInstallment PaymentMode = "installment"
	PaymentModeMonthly     PaymentMode = "monthly"
)

// ValidPaymentMode reports whether mode is recognised.
func ValidPaymentMode(mode string) bool {
	switch PaymentMode(mode) {
	case PaymentModeOneTime, PaymentModeTermly, PaymentModeInstallment, PaymentModeMonthly:
		return true
	}
	return false
}

// FeeStructure is what a cohort owes in one academic year.
type FeeStructure struct {
	ID             string          `db:"id" json:"id"`
	SchoolID       string          `db:"school_id" json:"school_id"`
	AcademicYearID string          `db:"academic_year_id" json:"academic_year_id"`
	Name           string          `db:"name" json:"name"`
	GradeLevel     string          `db:"grade_level" json:"grade_level"`
	AppliesTo      AppliesTo       `db:"applies_to" json:"applies_to"`
	ProgramType    *string         `db:"program_type" json:"program_type,omitempty"`
	Currency       string          `db:"currency" json:"currency"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	IsPublished    bool            `db:"is_published" json:"is_published"`
	CreatedBy      *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	Items     []FeeStructureItem `db:"-" json:"items,omitempty"`
	Schedules []PaymentSchedule  `db:"-" json:"schedules,omitempty"`
}

// FeeStructureItem is one category line of a structure.
type FeeStructureItem struct {
	ID           string          `db:"id" json:"id"`
	StructureID  string          `db:"structure_id" json:"structure_id"`
	CategoryID   string          `db:"category_id" json:"category_id"`
	CategoryName string          `db:"category_name" json:"category_name,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	IsMandatory  bool            `db:"is_mandatory" json:"is_mandatory"`
	IsRecurring  bool            `db:"is_recurring" json:"is_recurring"`
	PaymentModes pq.StringArray  `db:"payment_modes" json:"payment_modes"`
}

// StructureFilter narrows structure listings.
type StructureFilter struct {
	AcademicYearID string
	GradeLevel     string
	Page           int
	PageSize       int
}

// TemplateFilter constrains which structure may be used as an assignment
// template. It never narrows the student set.
type TemplateFilter struct {
	ProgramType string
}

// Matches reports whether structure satisfies the filter.
func (f TemplateFilter) Matches(s *FeeStructure) bool {
	if f.ProgramType == "" {
		return true
	}
	return s != nil && s.ProgramType != nil && *s.ProgramType == f.ProgramType
}
