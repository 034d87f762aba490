package finance

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound    = errors.New("fee not found")
	ErrOverpayment = errors.New("payment exceeds outstanding balance")
)

type (
	Repository interface {
		GetFee(ctx context.Context, id string) (Fee, error)
		FeesByStudent(ctx context.Context, studentID string) ([]Fee, error)
		CreateFee(ctx context.Context, fee Fee) (Fee, error)
		// ApplyPayment inserts the payment and bumps the fee's Paid total
		// as one atomic unit; concurrent payments on the same fee must not
		// lose updates. Returns ErrOverpayment when the amount would push
		// Paid past Amount.
		ApplyPayment(ctx context.Context, pay Payment) (Fee, error)
		PaymentsByStudent(ctx context.Context, studentID string) ([]Payment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateFee(ctx context.Context, nf NewFee) (Fee, error) {
	fee := Fee{
		StudentID: nf.StudentID,
		YearID:    nf.YearID,
		Title:     nf.Title,
		Amount:    nf.Amount,
		UpdatedAt: time.Now().UTC(),
	}
	if nf.DueAt != "" {
		due, err := time.ParseInLocation("2006-01-02", nf.DueAt, time.UTC)
		if err != nil {
			return Fee{}, core.NewValidationError(err, core.FieldError{Field: "due_at", Error: "invalid date"})
		}
		fee.DueAt = due
	}
	return svc.repo.CreateFee(ctx, fee)
}

// RecordPayment applies a payment against a fee. The balance check and
// the update happen in the repository's single atomic statement; the
// fee lookup here only produces the student linkage and a friendly
// validation error for unknown fees.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment, recordedBy string) (Payment, Fee, error) {
	fee, err := svc.repo.GetFee(ctx, np.FeeID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Payment{}, Fee{}, core.NewValidationError(ErrNotFound,
				core.FieldError{Field: "fee_id", Error: ErrNotFound.Error()})
		}
		return Payment{}, Fee{}, pkgerrors.Wrap(err, "finding fee")
	}

	pay := Payment{
		FeeID:      fee.ID,
		StudentID:  fee.StudentID,
		Amount:     np.Amount,
		Method:     np.Method,
		Reference:  np.Reference,
		RecordedBy: recordedBy,
		CreatedAt:  time.Now().UTC(),
	}
	updated, err := svc.repo.ApplyPayment(ctx, pay)
	if err != nil {
		if pkgerrors.Cause(err) == ErrOverpayment {
			return Payment{}, Fee{}, core.NewValidationError(ErrOverpayment,
				core.FieldError{Field: "amount", Error: ErrOverpayment.Error()})
		}
		return Payment{}, Fee{}, pkgerrors.Wrap(err, "applying payment")
	}
	return pay, updated, nil
}

// StatementFor aggregates a student's fees and payments in memory.
func (svc *Service) StatementFor(ctx context.Context, studentID string) (Statement, error) {
	fees, err := svc.repo.FeesByStudent(ctx, studentID)
	if err != nil {
		return Statement{}, pkgerrors.Wrap(err, "listing fees")
	}
	payments, err := svc.repo.PaymentsByStudent(ctx, studentID)
	if err != nil {
		return Statement{}, pkgerrors.Wrap(err, "listing payments")
	}

	st := Statement{StudentID: studentID, Fees: fees, Payments: payments}
	for _, fee := range fees {
		st.TotalDue += fee.Amount
		st.TotalPaid += fee.Paid
	}
	st.TotalBalance = st.TotalDue - st.TotalPaid
	return st, nil
}
