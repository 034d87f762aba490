package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceTable struct {
	records map[string]*attendance.Record // keyed student|class|date
}

func newAttendanceTable() *attendanceTable {
	return &attendanceTable{records: make(map[string]*attendance.Record)}
}

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func attKey(rec attendance.Record) string {
	return rec.StudentID + "|" + rec.ClassID + "|" + rec.Date.Format("2006-01-02")
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	key := attKey(rec)
	if prev, ok := repo.db.att.records[key]; ok {
		rec.ID = prev.ID
	} else {
		rec.ID = repo.db.nextPK("att")
	}
	repo.db.att.records[key] = &rec
	return rec, nil
}

func (repo *attendanceRepository) RecordsByStudent(ctx context.Context, studentID string, from, to time.Time) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.att.records {
		if rec.StudentID != studentID {
			continue
		}
		if !from.IsZero() && rec.Date.Before(from) {
			continue
		}
		if !to.IsZero() && rec.Date.After(to) {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	return recs, nil
}

func (repo *attendanceRepository) RecordsByClass(ctx context.Context, classID string, date time.Time) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.att.records {
		if rec.ClassID == classID && rec.Date.Equal(date) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StudentID < recs[j].StudentID })
	return recs, nil
}
