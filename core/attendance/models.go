package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Record is one student's attendance for one class on one day. There is
// at most one record per (student, class, date); marking again replaces
// the status atomically at the store.
type Record struct {
	ID         string    `json:"id" db:"id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	ClassID    string    `json:"class_id" db:"class_id"`
	Date       time.Time `json:"date" db:"date"` // date only, UTC midnight
	Status     Status    `json:"status" db:"status"`
	RecordedBy string    `json:"recorded_by" db:"recorded_by"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type NewRecord struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,attstatus"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.ClassID = core.CleanString(nr.ClassID)
	nr.Date = core.CleanString(nr.Date)
	nr.Status = core.CleanString(nr.Status, true /* lower */)
	return validate.Struct(nr)
}

// Summary is the in-memory aggregation of a student's records.
type Summary struct {
	StudentID  string  `json:"student_id"`
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"` // present+late over total
}
