package inmemdb

import (
	"context"
	"sort"

	"github.com/classledger/backend/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) queryLogs(filter attendance.LogFilter) []attendance.StudentLog {
	var logs []attendance.StudentLog
	for key, log := range repo.db.logs {
		student, ok := repo.db.students[key.studentID]
		if !ok {
			continue
		}
		if filter.StudentID != "" && key.studentID != filter.StudentID {
			continue
		}
		if filter.OriginalSection != "" && student.OriginalSection != filter.OriginalSection {
			continue
		}
		if filter.MergedSection != "" && student.MergedSection != filter.MergedSection {
			continue
		}
		if filter.Period != "" && key.period != filter.Period {
			continue
		}
		logs = append(logs, attendance.StudentLog{
			StudentID:       student.ID,
			StudentName:     student.Name,
			OriginalSection: student.OriginalSection,
			MergedSection:   student.MergedSection,
			Period:          key.period,
			Log:             log,
		})
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].StudentID != logs[j].StudentID {
			return logs[i].StudentID < logs[j].StudentID
		}
		return logs[i].Period < logs[j].Period
	})
	return logs
}

func (repo *attendanceRepository) QueryLogs(_ context.Context, filter attendance.LogFilter) ([]attendance.StudentLog, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryLogs(filter), nil
}

// AppendMarks serializes on the store-wide mutex: the fresh read, the build
// callback and the appends form one critical section, so two racing
// submissions for the same key cannot both pass the duplicate check.
func (repo *attendanceRepository) AppendMarks(
	_ context.Context,
	key attendance.SessionKey,
	build func(current []attendance.StudentLog) ([]attendance.NewEntry, error),
) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	current := repo.queryLogs(attendance.LogFilter{
		MergedSection: key.Section,
		Period:        key.Period,
	})

	entries, err := build(current)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		k := logKey{studentID: entry.StudentID, period: entry.Period}
		repo.db.logs[k] = attendance.AppendRecord(repo.db.logs[k], entry.Token)
	}
	return nil
}
