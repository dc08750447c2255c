package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleType selects how a structure total is split into installments.
type ScheduleType string

const (
	ScheduleAnnual  ScheduleType = "annual"
	SchedulePerTerm ScheduleType = "per_term"
	ScheduleMonthly ScheduleType = "monthly"
	ScheduleCustom  ScheduleType = "custom"
)

// ParseScheduleType normalises aliases such as "upfront" and "per-term".
func ParseScheduleType(raw string) (ScheduleType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "annual", "upfront":
		return ScheduleAnnual, true
	case "per_term", "per-term", "termly":
		return SchedulePerTerm, true
	case "monthly":
		return ScheduleMonthly, true
	case "custom":
		return ScheduleCustom, true
	}
	return "", false
}

// PaymentSchedule is one payment plan attached to a structure.
type PaymentSchedule struct {
	ID                 string          `db:"id" json:"id"`
	StructureID        string          `db:"structure_id" json:"structure_id"`
	Name               string          `db:"name" json:"name"`
	ScheduleType       ScheduleType    `db:"schedule_type" json:"schedule_type"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discount_percentage"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`

	Installments []PaymentInstallment `db:"-" json:"installments"`
}

// PaymentInstallment is a due-dated share of a schedule.
type PaymentInstallment struct {
	ID                string          `db:"id" json:"id"`
	ScheduleID        string          `db:"schedule_id" json:"schedule_id"`
	InstallmentNumber int             `db:"installment_number" json:"installment_number"`
	Label             string          `db:"label" json:"label"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Percentage        decimal.Decimal `db:"percentage" json:"percentage"`
	DueDate           *time.Time      `db:"due_date" json:"due_date,omitempty"`
}
