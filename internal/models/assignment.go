package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssignmentStatus tracks the lifecycle of a student fee assignment.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// StudentFeeAssignment binds a student to one structure and schedule.
type StudentFeeAssignment struct {
	ID             string           `db:"id" json:"id"`
	SchoolID       string           `db:"school_id" json:"school_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	StructureID    string           `db:"structure_id" json:"structure_id"`
	ScheduleID     string           `db:"schedule_id" json:"schedule_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	TotalDue       decimal.Decimal  `db:"total_due" json:"total_due"`
	PaidAmount     decimal.Decimal  `db:"paid_amount" json:"paid_amount"`
	Status         AssignmentStatus `db:"status" json:"status"`
	CreatedBy      *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail joins display names onto an assignment.
type AssignmentDetail struct {
	StudentFeeAssignment
	StudentName   string `db:"student_name" json:"student_name"`
	GradeLevel    string `db:"grade_level" json:"grade_level"`
	StructureName string `db:"structure_name" json:"structure_name"`
	ScheduleName  string `db:"schedule_name" json:"schedule_name"`
}

// Balance is the amount still owed.
func (a StudentFeeAssignment) Balance() decimal.Decimal {
	return a.TotalDue.Sub(a.PaidAmount)
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	AcademicYearID string
	StudentID      string
	StructureID    string
	Status         AssignmentStatus
	Page           int
	PageSize       int
}

// AssignmentKey identifies an assignment within one structure.
type AssignmentKey struct {
	StudentID  string `db:"student_id"`
	ScheduleID string `db:"schedule_id"`
}

// StudentFeePayment records money received against an assignment.
type StudentFeePayment struct {
	ID                string          `db:"id" json:"id"`
	SchoolID          string          `db:"school_id" json:"school_id"`
	AssignmentID      string          `db:"assignment_id" json:"assignment_id"`
	AmountPaid        decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	PaymentDate       time.Time       `db:"payment_date" json:"payment_date"`
	PaymentMethod     string          `db:"payment_method" json:"payment_method"`
	InstallmentNumber *int            `db:"installment_number" json:"installment_number,omitempty"`
	Reference         *string         `db:"reference" json:"reference,omitempty"`
	RecordedBy        string          `db:"recorded_by" json:"recorded_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
