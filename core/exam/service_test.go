package exam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	exams   map[string]Exam
	results map[string]Result // keyed exam|student
}

func newFakeRepo(exams ...Exam) *fakeRepo {
	repo := &fakeRepo{exams: make(map[string]Exam), results: make(map[string]Result)}
	for _, exam := range exams {
		repo.exams[exam.ID] = exam
	}
	return repo
}

func (r *fakeRepo) GetExam(ctx context.Context, id string) (Exam, error) {
	exam, ok := r.exams[id]
	if !ok {
		return Exam{}, ErrNotFound
	}
	return exam, nil
}

func (r *fakeRepo) CreateExam(ctx context.Context, exam Exam) (Exam, error) {
	exam.ID = "E" + time.Now().Format("150405.000000000")
	r.exams[exam.ID] = exam
	return exam, nil
}

func (r *fakeRepo) UpsertResult(ctx context.Context, res Result) (Result, error) {
	res.ID = res.ExamID + "|" + res.StudentID
	r.results[res.ID] = res
	return res, nil
}

func (r *fakeRepo) ResultsByStudent(ctx context.Context, studentID string) ([]Result, error) {
	var results []Result
	for _, res := range r.results {
		if res.StudentID == studentID {
			results = append(results, res)
		}
	}
	return results, nil
}

func (r *fakeRepo) ExamsByIDs(ctx context.Context, ids []string) ([]Exam, error) {
	var exams []Exam
	for _, id := range ids {
		if exam, ok := r.exams[id]; ok {
			exams = append(exams, exam)
		}
	}
	return exams, nil
}

func day(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

func TestGrade(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Exam{ID: "E1", ClassID: "C1", Subject: "Math", MaxScore: 20, HeldAt: day(1)})
	svc := NewService(repo)

	_, err := svc.Grade(ctx, NewResult{ExamID: "nope", StudentID: "S1", Score: 10})
	assert.Error(t, err)

	_, err = svc.Grade(ctx, NewResult{ExamID: "E1", StudentID: "S1", Score: 21})
	assert.Error(t, err)

	res, err := svc.Grade(ctx, NewResult{ExamID: "E1", StudentID: "S1", Score: 15, Remark: "good"})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Score)

	// re-grading replaces the score
	res, err = svc.Grade(ctx, NewResult{ExamID: "E1", StudentID: "S1", Score: 18})
	require.NoError(t, err)
	assert.Equal(t, 18, res.Score)
	results, _ := repo.ResultsByStudent(ctx, "S1")
	require.Len(t, results, 1)
	assert.Equal(t, 18, results[0].Score)
}

func TestReportFor(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(
		Exam{ID: "E1", Subject: "Math", MaxScore: 20, HeldAt: day(1)},
		Exam{ID: "E2", Subject: "Math", MaxScore: 50, HeldAt: day(8)},
		Exam{ID: "E3", Subject: "English", MaxScore: 100, HeldAt: day(2)},
	)
	svc := NewService(repo)
	for _, res := range []NewResult{
		{ExamID: "E1", StudentID: "S1", Score: 10}, // 50%
		{ExamID: "E2", StudentID: "S1", Score: 40}, // 80%
		{ExamID: "E3", StudentID: "S1", Score: 90}, // 90%
		{ExamID: "E3", StudentID: "S2", Score: 30},
	} {
		_, err := svc.Grade(ctx, res)
		require.NoError(t, err)
	}

	report, err := svc.ReportFor(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, report.Subjects, 2)

	// subjects sorted, lines ordered by exam date
	english, math := report.Subjects[0], report.Subjects[1]
	assert.Equal(t, "English", english.Subject)
	assert.Equal(t, 90.0, english.Average)
	assert.Equal(t, "Math", math.Subject)
	assert.Equal(t, 65.0, math.Average)
	require.Len(t, math.Lines, 2)
	assert.Equal(t, "E1", math.Lines[0].Exam.ID)
	assert.InDelta(t, 73.33, report.Overall, 0.01)
}

func TestReportForEmpty(t *testing.T) {
	svc := NewService(newFakeRepo())
	report, err := svc.ReportFor(context.Background(), "S1")
	require.NoError(t, err)
	assert.Empty(t, report.Subjects)
	assert.Zero(t, report.Overall)
}
