package attendance

import (
	"context"
	"errors"
	"math"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("attendance record not found")

type (
	Repository interface {
		// UpsertRecord inserts or replaces the record for its
		// (student, class, date) key as a single atomic update.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		RecordsByStudent(ctx context.Context, studentID string, from, to time.Time) ([]Record, error)
		RecordsByClass(ctx context.Context, classID string, date time.Time) ([]Record, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Mark records a student's attendance, replacing any earlier status for
// the same day and class.
func (svc *Service) Mark(ctx context.Context, nr NewRecord, recordedBy string) (Record, error) {
	date, err := time.ParseInLocation("2006-01-02", nr.Date, time.UTC)
	if err != nil {
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
	}
	return svc.repo.UpsertRecord(ctx, Record{
		StudentID:  nr.StudentID,
		ClassID:    nr.ClassID,
		Date:       date,
		Status:     Status(nr.Status),
		RecordedBy: recordedBy,
		UpdatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) ForStudent(ctx context.Context, studentID string, from, to time.Time) ([]Record, error) {
	return svc.repo.RecordsByStudent(ctx, studentID, from, to)
}

func (svc *Service) ForClass(ctx context.Context, classID string, date time.Time) ([]Record, error) {
	return svc.repo.RecordsByClass(ctx, classID, date)
}

// Summarize aggregates records in memory; present and late days count
// as attended.
func Summarize(studentID string, records []Record) Summary {
	s := Summary{StudentID: studentID, Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			s.Present++
		case StatusLate:
			s.Late++
		case StatusExcused:
			s.Excused++
		case StatusAbsent:
			s.Absent++
		}
	}
	if s.Total > 0 {
		s.Percentage = math.Round(float64(s.Present+s.Late)/float64(s.Total)*10000) / 100
	}
	return s
}

// InitValidators registers attendance validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation("attstatus", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, "attstatus", "invalid attendance status")
}
