package pgrepos

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/classledger/backend/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type logRow struct {
	StudentID       string `db:"student_id"`
	StudentName     string `db:"student_name"`
	OriginalSection string `db:"original_section"`
	MergedSection   string `db:"merged_section"`
	Period          string `db:"period"`
	Log             string `db:"log"`
}

func (r logRow) toStudentLog() attendance.StudentLog {
	return attendance.StudentLog{
		StudentID:       r.StudentID,
		StudentName:     r.StudentName,
		OriginalSection: r.OriginalSection,
		MergedSection:   r.MergedSection,
		Period:          attendance.Period(r.Period),
		Log:             r.Log,
	}
}

const logQuery = `
	SELECT s.id AS student_id, s.name AS student_name,
	       s.original_section, s.merged_section,
	       e.period, string_agg(e.entry, E'\n' ORDER BY e.id) AS log
	FROM attendance_entry e
	JOIN student s ON s.id = e.student_id
	%s
	GROUP BY s.id, s.name, s.original_section, s.merged_section, e.period
	ORDER BY s.id, e.period`

func buildLogFilter(filter attendance.LogFilter) (string, []interface{}) {
	var where string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		if where == "" {
			where = "WHERE "
		} else {
			where += " AND "
		}
		args = append(args, arg)
		where += clause
	}

	if filter.StudentID != "" {
		add(fmt.Sprintf("s.id = $%d", len(args)+1), filter.StudentID)
	}
	if filter.OriginalSection != "" {
		add(fmt.Sprintf("s.original_section = $%d", len(args)+1), filter.OriginalSection)
	}
	if filter.MergedSection != "" {
		add(fmt.Sprintf("s.merged_section = $%d", len(args)+1), filter.MergedSection)
	}
	if filter.Period != "" {
		add(fmt.Sprintf("e.period = $%d", len(args)+1), string(filter.Period))
	}
	return where, args
}

func (repo *attendanceRepository) QueryLogs(ctx context.Context, filter attendance.LogFilter) ([]attendance.StudentLog, error) {
	where, args := buildLogFilter(filter)

	var rows []logRow
	if err := repo.db.SelectContext(ctx, &rows, fmt.Sprintf(logQuery, where), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance logs")
	}

	logs := make([]attendance.StudentLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toStudentLog())
	}
	return logs, nil
}

// AppendMarks serializes concurrent submissions on the same
// (section, period, date) key with a transaction-scoped advisory lock, hands
// build a fresh read of the key's section logs, and inserts the returned
// entries atomically. A build error rolls everything back.
func (repo *attendanceRepository) AppendMarks(
	ctx context.Context,
	key attendance.SessionKey,
	build func(current []attendance.StudentLog) ([]attendance.NewEntry, error),
) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockID(key)); err != nil {
		return errors.Wrap(err, "acquiring marking lock")
	}

	where, args := buildLogFilter(attendance.LogFilter{
		MergedSection: key.Section,
		Period:        key.Period,
	})
	var rows []logRow
	if err = tx.SelectContext(ctx, &rows, fmt.Sprintf(logQuery, where), args...); err != nil {
		return errors.Wrap(err, "querying attendance logs")
	}
	logs := make([]attendance.StudentLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toStudentLog())
	}

	entries, err := build(logs)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO attendance_entry (student_id, period, entry) VALUES ($1, $2, $3)",
			entry.StudentID, string(entry.Period), entry.Token)
		if err != nil {
			return errors.Wrap(err, "inserting attendance entry")
		}
	}

	return errors.Wrap(tx.Commit(), "committing marks")
}

// lockID derives a stable advisory lock key for a marking session.
func lockID(key attendance.SessionKey) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key.String()))
	return int64(h.Sum64())
}
