package exam

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound     = errors.New("exam not found")
	ErrScoreTooHigh = errors.New("score exceeds the exam's max score")
)

type (
	Repository interface {
		GetExam(ctx context.Context, id string) (Exam, error)
		CreateExam(ctx context.Context, exam Exam) (Exam, error)
		// UpsertResult is keyed on (exam, student); re-grading replaces
		// the previous score.
		UpsertResult(ctx context.Context, res Result) (Result, error)
		ResultsByStudent(ctx context.Context, studentID string) ([]Result, error)
		ExamsByIDs(ctx context.Context, ids []string) ([]Exam, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ne NewExam) (Exam, error) {
	heldAt, err := time.ParseInLocation("2006-01-02", ne.HeldAt, time.UTC)
	if err != nil {
		return Exam{}, core.NewValidationError(err, core.FieldError{Field: "held_at", Error: "invalid date"})
	}
	exam := Exam{
		ClassID:  ne.ClassID,
		YearID:   ne.YearID,
		Subject:  ne.Subject,
		Title:    ne.Title,
		MaxScore: ne.MaxScore,
		HeldAt:   heldAt,
	}
	return svc.repo.CreateExam(ctx, exam)
}

func (svc *Service) Grade(ctx context.Context, nr NewResult) (Result, error) {
	exam, err := svc.repo.GetExam(ctx, nr.ExamID)
	if err != nil {
		if pkgerrors.Cause(err) == ErrNotFound {
			return Result{}, core.NewValidationError(ErrNotFound,
				core.FieldError{Field: "exam_id", Error: ErrNotFound.Error()})
		}
		return Result{}, pkgerrors.Wrap(err, "finding exam")
	}
	if nr.Score > exam.MaxScore {
		return Result{}, core.NewValidationError(ErrScoreTooHigh,
			core.FieldError{Field: "score", Error: ErrScoreTooHigh.Error()})
	}
	res := Result{
		ExamID:    exam.ID,
		StudentID: nr.StudentID,
		Score:     nr.Score,
		Remark:    nr.Remark,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpsertResult(ctx, res)
}

// ReportFor builds a student's results report, grouping by subject and
// averaging score percentages in memory.
func (svc *Service) ReportFor(ctx context.Context, studentID string) (Report, error) {
	results, err := svc.repo.ResultsByStudent(ctx, studentID)
	if err != nil {
		return Report{}, pkgerrors.Wrap(err, "listing results")
	}
	report := Report{StudentID: studentID, Subjects: []SubjectReport{}}
	if len(results) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.ExamID)
	}
	exams, err := svc.repo.ExamsByIDs(ctx, ids)
	if err != nil {
		return Report{}, pkgerrors.Wrap(err, "listing exams")
	}
	examsByID := make(map[string]Exam, len(exams))
	for _, exam := range exams {
		examsByID[exam.ID] = exam
	}

	bySubject := make(map[string][]ResultLine)
	for _, res := range results {
		exam, ok := examsByID[res.ExamID]
		if !ok {
			continue // result orphaned mid-delete
		}
		bySubject[exam.Subject] = append(bySubject[exam.Subject], ResultLine{Exam: exam, Result: res})
	}

	subjects := make([]string, 0, len(bySubject))
	for subject := range bySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	var overallSum float64
	var overallN int
	for _, subject := range subjects {
		lines := bySubject[subject]
		sort.Slice(lines, func(i, j int) bool { return lines[i].Exam.HeldAt.Before(lines[j].Exam.HeldAt) })
		var sum float64
		for _, line := range lines {
			pct := 100 * float64(line.Result.Score) / float64(line.Exam.MaxScore)
			sum += pct
			overallSum += pct
			overallN++
		}
		report.Subjects = append(report.Subjects, SubjectReport{
			Subject: subject,
			Lines:   lines,
			Average: round2(sum / float64(len(lines))),
		})
	}
	if overallN > 0 {
		report.Overall = round2(overallSum / float64(overallN))
	}
	return report, nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
