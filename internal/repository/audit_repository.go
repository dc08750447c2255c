package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// AuditRepository appends rows to fee_audit_trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository instantiates an audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record inserts entry, inside exec's transaction when given.
func (r *AuditRepository) Record(ctx context.Context, exec sqlx.ExtContext, entry *models.FeeAuditTrail) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if len(entry.Details) == 0 {
		entry.Details = types.JSONText(`{}`)
	}
	var target sqlx.ExtContext = r.db
	if exec != nil {
		target = exec
	}
	const query = `INSERT INTO fee_audit_trail (id, school_id, academic_year_id, actor_id, action, entity, entity_id, details, created_at) VALUES (:id, :school_id, :academic_year_id, :actor_id, :action, :entity, :entity_id, :details, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
		return fmt.Errorf("record fee audit: %w", err)
	}
	return nil
}
