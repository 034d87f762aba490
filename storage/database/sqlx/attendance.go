package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = uuid.New().String()
	var out attendance.Record
	rows, err := repo.db.NamedQueryContext(ctx,
		`INSERT INTO attendance_record (id, student_id, class_id, date, status, recorded_by, updated_at)
		 VALUES (:id, :student_id, :class_id, :date, :status, :recorded_by, :updated_at)
		 ON CONFLICT (student_id, class_id, date)
		 DO UPDATE SET status = EXCLUDED.status, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
		 RETURNING *`, rec)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.StructScan(&out); err != nil {
			return attendance.Record{}, errors.Wrap(err, "scanning attendance record")
		}
	}
	return out, errors.Wrap(rows.Err(), "upserting attendance record")
}

func (repo attendanceRepository) RecordsByStudent(ctx context.Context, studentID string, from, to time.Time) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	query := `SELECT * FROM attendance_record WHERE student_id = $1`
	args := []interface{}{studentID}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	query += ` ORDER BY date`
	if err := repo.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance by student")
	}
	return recs, nil
}

func (repo attendanceRepository) RecordsByClass(ctx context.Context, classID string, date time.Time) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	err := repo.db.SelectContext(ctx, &recs,
		`SELECT * FROM attendance_record WHERE class_id = $1 AND date = $2 ORDER BY student_id`, classID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance by class")
	}
	return recs, nil
}
