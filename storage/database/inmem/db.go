// Package inmemdb is an in-memory implementation of the repositories, used in
// tests and local development without Postgres.
package inmemdb

import (
	"sync"

	"github.com/classledger/backend/core/attendance"
	"github.com/classledger/backend/core/roster"
)

type logKey struct {
	studentID string
	period    attendance.Period
}

type DB struct {
	mutex    sync.RWMutex
	students map[string]*roster.Student
	faculty  map[string]*roster.Faculty
	subjects map[string][]string // merged section -> subjects
	logs     map[logKey]string
}

func Open() *DB {
	return &DB{
		students: make(map[string]*roster.Student),
		faculty:  make(map[string]*roster.Faculty),
		subjects: make(map[string][]string),
		logs:     make(map[logKey]string),
	}
}

// AddStudent seeds a roster row; test helper.
func (db *DB) AddStudent(s roster.Student) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.students[s.ID] = &s
}

// MapSubjects seeds the section-subject mapping; test helper.
func (db *DB) MapSubjects(mergedSection string, subjects ...string) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.subjects[mergedSection] = append(db.subjects[mergedSection], subjects...)
}

// SeedLog installs a raw log blob for a (student, period); test helper for
// exercising legacy/malformed records.
func (db *DB) SeedLog(studentID string, period attendance.Period, log string) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.logs[logKey{studentID: studentID, period: period}] = log
}
