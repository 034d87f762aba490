package dummydb

import (
	"context"

	"github.com/trezcool/shule/core/exam"
)

type examTables struct {
	exams   map[string]*exam.Exam
	results map[string]*exam.Result // keyed exam|student
}

func newExamTables() *examTables {
	return &examTables{
		exams:   make(map[string]*exam.Exam),
		results: make(map[string]*exam.Result),
	}
}

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db}
}

func (repo *examRepository) GetExam(ctx context.Context, id string) (exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if ex, ok := repo.db.exam.exams[id]; ok {
		return *ex, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	ex.ID = repo.db.nextPK("exam")
	repo.db.exam.exams[ex.ID] = &ex
	return ex, nil
}

func (repo *examRepository) UpsertResult(ctx context.Context, res exam.Result) (exam.Result, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	key := res.ExamID + "|" + res.StudentID
	if prev, ok := repo.db.exam.results[key]; ok {
		res.ID = prev.ID
	} else {
		res.ID = repo.db.nextPK("res")
	}
	repo.db.exam.results[key] = &res
	return res, nil
}

func (repo *examRepository) ResultsByStudent(ctx context.Context, studentID string) ([]exam.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	results := make([]exam.Result, 0)
	for _, res := range repo.db.exam.results {
		if res.StudentID == studentID {
			results = append(results, *res)
		}
	}
	return results, nil
}

func (repo *examRepository) ExamsByIDs(ctx context.Context, ids []string) ([]exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	exams := make([]exam.Exam, 0, len(ids))
	for _, id := range ids {
		if ex, ok := repo.db.exam.exams[id]; ok {
			exams = append(exams, *ex)
		}
	}
	return exams, nil
}
