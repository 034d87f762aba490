package finance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Amounts are integral minor currency units.

// Fee is an amount due by a student for a school year. Paid is the
// running total of applied payments; recording a payment updates it in
// the same atomic statement that checks the balance.
type Fee struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	YearID    string    `json:"year_id" db:"year_id"`
	Title     string    `json:"title" db:"title"`
	Amount    int64     `json:"amount" db:"amount"`
	Paid      int64     `json:"paid" db:"paid"`
	DueAt     time.Time `json:"due_at" db:"due_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (f Fee) Balance() int64 { return f.Amount - f.Paid }

type Payment struct {
	ID         string    `json:"id" db:"id"`
	FeeID      string    `json:"fee_id" db:"fee_id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	Amount     int64     `json:"amount" db:"amount"`
	Method     string    `json:"method" db:"method"` // cash, card, transfer...
	Reference  string    `json:"reference" db:"reference"`
	RecordedBy string    `json:"recorded_by" db:"recorded_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type NewPayment struct {
	FeeID     string `json:"fee_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.FeeID = core.CleanString(np.FeeID)
	np.Method = core.CleanString(np.Method, true /* lower */)
	np.Reference = core.CleanString(np.Reference)
	return validate.Struct(np)
}

type NewFee struct {
	StudentID string `json:"student_id" validate:"required"`
	YearID    string `json:"year_id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	DueAt     string `json:"due_at" validate:"omitempty,datetime=2006-01-02"`
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.StudentID = core.CleanString(nf.StudentID)
	nf.YearID = core.CleanString(nf.YearID)
	nf.Title = core.CleanString(nf.Title)
	nf.DueAt = core.CleanString(nf.DueAt)
	return validate.Struct(nf)
}

// Statement is a student's fees and payments with in-memory totals.
type Statement struct {
	StudentID    string    `json:"student_id"`
	Fees         []Fee     `json:"fees"`
	Payments     []Payment `json:"payments"`
	TotalDue     int64     `json:"total_due"`
	TotalPaid    int64     `json:"total_paid"`
	TotalBalance int64     `json:"total_balance"`
}
