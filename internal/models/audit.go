package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions written to fee_audit_trail.
const (
	AuditYearCreate       = "academic_year.create"
	AuditYearUpdate       = "academic_year.update"
	AuditYearActivate     = "academic_year.activate"
	AuditStructureCreate  = "fee_structure.create"
	AuditStructurePublish = "fee_structure.publish"
	AuditStructureDelete  = "fee_structure.delete"
	AuditScheduleCreate   = "payment_schedule.create"
	AuditAutoAssignCommit = "assignment.auto_assign"
	AuditPaymentRecord    = "payment.record"
)

// FeeAuditTrail is an append-only record of fee administration changes.
type FeeAuditTrail struct {
	ID             string         `db:"id" json:"id"`
	SchoolID       string         `db:"school_id" json:"school_id"`
	AcademicYearID *string        `db:"academic_year_id" json:"academic_year_id,omitempty"`
	ActorID        string         `db:"actor_id" json:"actor_id"`
	Action         string         `db:"action" json:"action"`
	Entity         string         `db:"entity" json:"entity"`
	EntityID       string         `db:"entity_id" json:"entity_id"`
	Details        types.JSONText `db:"details" json:"details,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
