package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type assignmentLocker interface {
	LockByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.StudentFeeAssignment, error)
	UpdateBalance(ctx context.Context, exec sqlx.ExtContext, id string, paid decimal.Decimal, status models.AssignmentStatus) error
}

type paymentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.StudentFeePayment) error
}

// PaymentService records installment payments against assignments.
type PaymentService struct {
	assignments assignmentLocker
	payments    paymentRepository
	audit       auditRecorder
	tx          txProvider
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService constructs a payment service.
func NewPaymentService(assignments assignmentLocker, payments paymentRepository, audit auditRecorder, tx txProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		assignments: assignments,
		payments:    payments,
		audit:       audit,
		tx:          tx,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Record stores a payment and bumps the assignment balance in one
// transaction. The assignment completes once fully paid.
func (s *PaymentService) Record(ctx context.Context, actor *models.Profile, assignmentID string, req dto.RecordPaymentRequest) (*dto.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}
	paidOn := s.now().UTC().Truncate(24 * time.Hour)
	if req.PaymentDate != "" {
		parsed, err := parseDate("payment_date", req.PaymentDate)
		if err != nil {
			return nil, err
		}
		paidOn = parsed
	}

	result := &dto.PaymentResult{}
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		assignment, err := s.assignments.LockByID(ctx, tx, actor.SchoolID, assignmentID)
		if err != nil {
			return notFoundOr(s.logger, err, "fee assignment", "load fee assignment")
		}
		if assignment.Status == models.AssignmentCancelled {
			return appErrors.Clone(appErrors.ErrValidation, "cannot record a payment against a cancelled assignment")
		}
		amount := req.Amount.Round(2)
		if amount.GreaterThan(assignment.Balance()) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("amount exceeds the outstanding balance of %s", assignment.Balance().StringFixed(2)))
		}

		payment := models.StudentFeePayment{
			SchoolID:          actor.SchoolID,
			AssignmentID:      assignment.ID,
			AmountPaid:        amount,
			PaymentDate:       paidOn,
			PaymentMethod:     req.PaymentMethod,
			InstallmentNumber: req.InstallmentNumber,
			Reference:         req.Reference,
			RecordedBy:        actor.UserID,
		}
		if err := s.payments.Create(ctx, tx, &payment); err != nil {
			s.logger.Error("create fee payment", zap.String("assignment_id", assignment.ID), zap.Error(err))
			return appErrors.Internal(err, "failed to record payment")
		}

		assignment.PaidAmount = assignment.PaidAmount.Add(amount)
		if !assignment.PaidAmount.LessThan(assignment.TotalDue) {
			assignment.Status = models.AssignmentCompleted
		}
		if err := s.assignments.UpdateBalance(ctx, tx, assignment.ID, assignment.PaidAmount, assignment.Status); err != nil {
			return notFoundOr(s.logger, err, "fee assignment", "update assignment balance")
		}

		entry := auditEntry(actor, &assignment.AcademicYearID, models.AuditPaymentRecord, "student_fee_payment", payment.ID, map[string]interface{}{
			"assignment_id": assignment.ID,
			"amount":        amount,
			"method":        req.PaymentMethod,
			"status":        assignment.Status,
		})
		if err := s.audit.Record(ctx, tx, entry); err != nil {
			s.logger.Error("record payment audit", zap.Error(err))
			return appErrors.Internal(err, "failed to record payment audit")
		}

		result.Payment = payment
		result.Assignment = *assignment
		result.Balance = assignment.Balance()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPayment()
	return result, nil
}
