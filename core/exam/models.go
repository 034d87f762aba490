package exam

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Exam is a graded assessment held for a class on a given date.
type Exam struct {
	ID       string    `json:"id" db:"id"`
	ClassID  string    `json:"class_id" db:"class_id"`
	YearID   string    `json:"year_id" db:"year_id"`
	Subject  string    `json:"subject" db:"subject"`
	Title    string    `json:"title" db:"title"`
	MaxScore int       `json:"max_score" db:"max_score"`
	HeldAt   time.Time `json:"held_at" db:"held_at"`
}

// Result is a student's score on an exam.
type Result struct {
	ID        string    `json:"id" db:"id"`
	ExamID    string    `json:"exam_id" db:"exam_id"`
	StudentID string    `json:"student_id" db:"student_id"`
	Score     int       `json:"score" db:"score"`
	Remark    string    `json:"remark" db:"remark"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NewExam struct {
	ClassID  string `json:"class_id" validate:"required"`
	YearID   string `json:"year_id" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
	Title    string `json:"title" validate:"required"`
	MaxScore int    `json:"max_score" validate:"required,gt=0"`
	HeldAt   string `json:"held_at" validate:"required,datetime=2006-01-02"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.YearID = core.CleanString(ne.YearID)
	ne.Subject = core.CleanString(ne.Subject)
	ne.Title = core.CleanString(ne.Title)
	ne.HeldAt = core.CleanString(ne.HeldAt)
	return validate.Struct(ne)
}

type NewResult struct {
	ExamID    string `json:"exam_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Score     int    `json:"score" validate:"gte=0"`
	Remark    string `json:"remark"`
}

func (nr *NewResult) Validate(validate *validator.Validate) error {
	nr.ExamID = core.CleanString(nr.ExamID)
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Remark = core.CleanString(nr.Remark)
	return validate.Struct(nr)
}

// ResultLine pairs a result with its exam for report rendering.
type ResultLine struct {
	Exam   Exam   `json:"exam"`
	Result Result `json:"result"`
}

// SubjectReport groups a student's results by subject with the average
// percentage over that subject's exams.
type SubjectReport struct {
	Subject string       `json:"subject"`
	Lines   []ResultLine `json:"lines"`
	Average float64      `json:"average"`
}

// Report is a student's full results report for a school year.
type Report struct {
	StudentID string          `json:"student_id"`
	Subjects  []SubjectReport `json:"subjects"`
	Overall   float64         `json:"overall"`
}
