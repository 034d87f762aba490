// Package dummydb provides in-memory repositories for tests and local
// hacking. Not safe for production use.
package dummydb

import (
	"strconv"
	"sync"
)

type DB struct {
	sync.RWMutex
	pkCount int

	school *schoolTables
	att    *attendanceTable
	fin    *financeTables
	exam   *examTables
	notif  *notificationTable
}

func Open() *DB {
	return &DB{
		school: newSchoolTables(),
		att:    newAttendanceTable(),
		fin:    newFinanceTables(),
		exam:   newExamTables(),
		notif:  newNotificationTable(),
	}
}

// nextPK returns a process-unique id.
func (db *DB) nextPK(prefix string) string {
	db.pkCount++
	return prefix + strconv.Itoa(db.pkCount)
}
