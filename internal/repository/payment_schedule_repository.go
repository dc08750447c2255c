package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// PaymentScheduleRepository persists schedules and their installments.
type PaymentScheduleRepository struct {
	db *sqlx.DB
}

// NewPaymentScheduleRepository instantiates a payment schedule repository.
func NewPaymentScheduleRepository(db *sqlx.DB) *PaymentScheduleRepository {
	return &PaymentScheduleRepository{db: db}
}

func (r *PaymentScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByStructure returns the schedules of a structure with installments attached.
func (r *PaymentScheduleRepository) ListByStructure(ctx context.Context, structureID string) ([]models.PaymentSchedule, error) {
	const query = `SELECT id, structure_id, name, schedule_type, discount_percentage, created_at FROM payment_schedules WHERE structure_id = $1 ORDER BY created_at`
	var schedules []models.PaymentSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, structureID); err != nil {
		return nil, fmt.Errorf("list payment schedules: %w", err)
	}
	if err := r.attachInstallments(ctx, schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// FindByIDs returns the schedules among ids that belong to structureID, with installments.
func (r *PaymentScheduleRepository) FindByIDs(ctx context.Context, structureID string, ids []string) ([]models.PaymentSchedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, structure_id, name, schedule_type, discount_percentage, created_at FROM payment_schedules WHERE structure_id = $1 AND id = ANY($2)`
	var schedules []models.PaymentSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, structureID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find payment schedules: %w", err)
	}
	if err := r.attachInstallments(ctx, schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// Create inserts the schedule and its installments.
func (r *PaymentScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.PaymentSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	target := r.exec(exec)

	const insertSchedule = `INSERT INTO payment_schedules (id, structure_id, name, schedule_type, discount_percentage, created_at) VALUES (:id, :structure_id, :name, :schedule_type, :discount_percentage, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertSchedule, schedule); err != nil {
		return fmt.Errorf("create payment schedule: %w", err)
	}
	if len(schedule.Installments) == 0 {
		return nil
	}
	for i := range schedule.Installments {
		if schedule.Installments[i].ID == "" {
			schedule.Installments[i].ID = uuid.NewString()
		}
		schedule.Installments[i].ScheduleID = schedule.ID
	}
	const insertInstallments = `INSERT INTO payment_installments (id, schedule_id, installment_number, label, amount, percentage, due_date) VALUES (:id, :schedule_id, :installment_number, :label, :amount, :percentage, :due_date)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertInstallments, schedule.Installments); err != nil {
		return fmt.Errorf("create payment installments: %w", err)
	}
	return nil
}

func (r *PaymentScheduleRepository) attachInstallments(ctx context.Context, schedules []models.PaymentSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	ids := make([]string, len(schedules))
	index := make(map[string]int, len(schedules))
	for i, s := range schedules {
		ids[i] = s.ID
		index[s.ID] = i
		schedules[i].Installments = []models.PaymentInstallment{}
	}
	const query = `SELECT id, schedule_id, installment_number, label, amount, percentage, due_date FROM payment_installments WHERE schedule_id = ANY($1) ORDER BY schedule_id, installment_number`
	var installments []models.PaymentInstallment
	if err := r.db.SelectContext(ctx, &installments, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list payment installments: %w", err)
	}
	for _, inst := range installments {
		if i, ok := index[inst.ScheduleID]; ok {
			schedules[i].Installments = append(schedules[i].Installments, inst)
		}
	}
	return nil
}
