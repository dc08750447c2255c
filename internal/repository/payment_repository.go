package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// PaymentRepository records payments against assignments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository instantiates a payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment, inside exec's transaction when given.
func (r *PaymentRepository) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.StudentFeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	var target sqlx.ExtContext = r.db
	if exec != nil {
		target = exec
	}
	const query = `INSERT INTO student_fee_payments (id, school_id, assignment_id, amount_paid, payment_date, payment_method, installment_number, reference, recorded_by, created_at) VALUES (:id, :school_id, :assignment_id, :amount_paid, :payment_date, :payment_method, :installment_number, :reference, :recorded_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, payment); err != nil {
		return fmt.Errorf("create fee payment: %w", err)
	}
	return nil
}
