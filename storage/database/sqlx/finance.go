package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/finance"
)

type financeRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *sqlx.DB) *financeRepository {
	return &financeRepository{db: db}
}

func (repo financeRepository) GetFee(ctx context.Context, id string) (finance.Fee, error) {
	var fee finance.Fee
	if err := repo.db.GetContext(ctx, &fee, `SELECT * FROM fee WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return finance.Fee{}, finance.ErrNotFound
		}
		return finance.Fee{}, errors.Wrap(err, "getting fee")
	}
	return fee, nil
}

func (repo financeRepository) FeesByStudent(ctx context.Context, studentID string) ([]finance.Fee, error) {
	fees := make([]finance.Fee, 0)
	err := repo.db.SelectContext(ctx, &fees,
		`SELECT * FROM fee WHERE student_id = $1 ORDER BY due_at, title`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	return fees, nil
}

func (repo financeRepository) CreateFee(ctx context.Context, fee finance.Fee) (finance.Fee, error) {
	fee.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO fee (id, student_id, year_id, title, amount, paid, due_at, updated_at)
		 VALUES (:id, :student_id, :year_id, :title, :amount, :paid, :due_at, :updated_at)`, fee)
	if err != nil {
		return finance.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return fee, nil
}

// ApplyPayment bumps the fee's paid total and inserts the payment in
// one transaction. The balance check lives in the UPDATE's WHERE clause
// so concurrent payments on the same fee serialize on the row lock and
// can never overshoot.
func (repo financeRepository) ApplyPayment(ctx context.Context, pay finance.Payment) (finance.Fee, error) {
	pay.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return finance.Fee{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var fee finance.Fee
	err = tx.GetContext(ctx, &fee,
		`UPDATE fee SET paid = paid + $1, updated_at = $2
		 WHERE id = $3 AND paid + $1 <= amount
		 RETURNING *`, pay.Amount, pay.CreatedAt, pay.FeeID)
	if err != nil {
		if err == sql.ErrNoRows {
			// fee missing or balance would overshoot; disambiguate
			var exists bool
			if err = tx.GetContext(ctx, &exists, `SELECT true FROM fee WHERE id = $1`, pay.FeeID); err == nil && exists {
				return finance.Fee{}, finance.ErrOverpayment
			}
			return finance.Fee{}, finance.ErrNotFound
		}
		return finance.Fee{}, errors.Wrap(err, "updating fee")
	}

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO payment (id, fee_id, student_id, amount, method, reference, recorded_by, created_at)
		 VALUES (:id, :fee_id, :student_id, :amount, :method, :reference, :recorded_by, :created_at)`, pay)
	if err != nil {
		return finance.Fee{}, errors.Wrap(err, "inserting payment")
	}

	if err = tx.Commit(); err != nil {
		return finance.Fee{}, errors.Wrap(err, "committing payment")
	}
	return fee, nil
}

func (repo financeRepository) PaymentsByStudent(ctx context.Context, studentID string) ([]finance.Payment, error) {
	pays := make([]finance.Payment, 0)
	err := repo.db.SelectContext(ctx, &pays,
		`SELECT * FROM payment WHERE student_id = $1 ORDER BY created_at`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return pays, nil
}
