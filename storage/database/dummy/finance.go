package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/finance"
)

type financeTables struct {
	fees     map[string]*finance.Fee
	payments map[string]*finance.Payment
}

func newFinanceTables() *financeTables {
	return &financeTables{
		fees:     make(map[string]*finance.Fee),
		payments: make(map[string]*finance.Payment),
	}
}

type financeRepository struct {
	db *DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *DB) *financeRepository {
	return &financeRepository{db: db}
}

func (repo *financeRepository) GetFee(ctx context.Context, id string) (finance.Fee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if fee, ok := repo.db.fin.fees[id]; ok {
		return *fee, nil
	}
	return finance.Fee{}, finance.ErrNotFound
}

func (repo *financeRepository) FeesByStudent(ctx context.Context, studentID string) ([]finance.Fee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	fees := make([]finance.Fee, 0)
	for _, fee := range repo.db.fin.fees {
		if fee.StudentID == studentID {
			fees = append(fees, *fee)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].Title < fees[j].Title })
	return fees, nil
}

func (repo *financeRepository) CreateFee(ctx context.Context, fee finance.Fee) (finance.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	fee.ID = repo.db.nextPK("fee")
	repo.db.fin.fees[fee.ID] = &fee
	return fee, nil
}

func (repo *financeRepository) ApplyPayment(ctx context.Context, pay finance.Payment) (finance.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	fee, ok := repo.db.fin.fees[pay.FeeID]
	if !ok {
		return finance.Fee{}, finance.ErrNotFound
	}
	if fee.Paid+pay.Amount > fee.Amount {
		return finance.Fee{}, finance.ErrOverpayment
	}
	fee.Paid += pay.Amount
	fee.UpdatedAt = pay.CreatedAt
	pay.ID = repo.db.nextPK("pay")
	repo.db.fin.payments[pay.ID] = &pay
	return *fee, nil
}

func (repo *financeRepository) PaymentsByStudent(ctx context.Context, studentID string) ([]finance.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	pays := make([]finance.Payment, 0)
	for _, pay := range repo.db.fin.payments {
		if pay.StudentID == studentID {
			pays = append(pays, *pay)
		}
	}
	sort.Slice(pays, func(i, j int) bool { return pays[i].CreatedAt.Before(pays[j].CreatedAt) })
	return pays, nil
}
