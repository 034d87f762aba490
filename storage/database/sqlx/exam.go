package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/exam"
)

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{db: db}
}

func (repo examRepository) GetExam(ctx context.Context, id string) (exam.Exam, error) {
	var ex exam.Exam
	if err := repo.db.GetContext(ctx, &ex, `SELECT * FROM exam WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return exam.Exam{}, exam.ErrNotFound
		}
		return exam.Exam{}, errors.Wrap(err, "getting exam")
	}
	return ex, nil
}

func (repo examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	ex.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO exam (id, class_id, year_id, subject, title, max_score, held_at)
		 VALUES (:id, :class_id, :year_id, :subject, :title, :max_score, :held_at)`, ex)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return ex, nil
}

func (repo examRepository) UpsertResult(ctx context.Context, res exam.Result) (exam.Result, error) {
	res.ID = uuid.New().String()
	var out exam.Result
	rows, err := repo.db.NamedQueryContext(ctx,
		`INSERT INTO exam_result (id, exam_id, student_id, score, remark, updated_at)
		 VALUES (:id, :exam_id, :student_id, :score, :remark, :updated_at)
		 ON CONFLICT (exam_id, student_id)
		 DO UPDATE SET score = EXCLUDED.score, remark = EXCLUDED.remark, updated_at = EXCLUDED.updated_at
		 RETURNING *`, res)
	if err != nil {
		return exam.Result{}, errors.Wrap(err, "upserting exam result")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.StructScan(&out); err != nil {
			return exam.Result{}, errors.Wrap(err, "scanning exam result")
		}
	}
	return out, errors.Wrap(rows.Err(), "upserting exam result")
}

func (repo examRepository) ResultsByStudent(ctx context.Context, studentID string) ([]exam.Result, error) {
	results := make([]exam.Result, 0)
	err := repo.db.SelectContext(ctx, &results,
		`SELECT * FROM exam_result WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying exam results")
	}
	return results, nil
}

func (repo examRepository) ExamsByIDs(ctx context.Context, ids []string) ([]exam.Exam, error) {
	exams := make([]exam.Exam, 0, len(ids))
	if len(ids) == 0 {
		return exams, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM exam WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building exam query")
	}
	if err = repo.db.SelectContext(ctx, &exams, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	return exams, nil
}
