package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditRecorder interface {
	Record(ctx context.Context, exec sqlx.ExtContext, entry *models.FeeAuditTrail) error
}

// withTx runs fn inside one transaction, rolling back on any error.
func withTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit transaction")
	}
	return nil
}

// auditEntry builds an audit row for actor. details is marshalled to JSON.
func auditEntry(actor *models.Profile, yearID *string, action, entity, entityID string, details interface{}) *models.FeeAuditTrail {
	entry := &models.FeeAuditTrail{
		SchoolID:       actor.SchoolID,
		AcademicYearID: yearID,
		ActorID:        actor.UserID,
		Action:         action,
		Entity:         entity,
		EntityID:       entityID,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = types.JSONText(raw)
		}
	}
	return entry
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must use YYYY-MM-DD", field))
	}
	return t, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// notFoundOr maps a missing row to 404 and anything else to a logged 500.
func notFoundOr(logger *zap.Logger, err error, entity, action string) error {
	if isNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	logger.Error(action, zap.Error(err))
	return appErrors.Internal(err, "failed to "+action)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
