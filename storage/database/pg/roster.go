package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/classledger/backend/core/roster"
)

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{db: db}
}

type studentRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	OriginalSection string `db:"original_section"`
	MergedSection   string `db:"merged_section"`
}

func (r studentRow) toStudent() roster.Student {
	return roster.Student{
		ID:              r.ID,
		Name:            r.Name,
		OriginalSection: r.OriginalSection,
		MergedSection:   r.MergedSection,
	}
}

type facultyRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     string      `db:"username"`
	Email        null.String `db:"email"`
	IsAdmin      bool        `db:"is_admin"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r facultyRow) toFaculty() roster.Faculty {
	return roster.Faculty{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email.String,
		IsAdmin:      r.IsAdmin,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func newFacultyRow(fac roster.Faculty) facultyRow {
	return facultyRow{
		ID:           fac.ID,
		Name:         fac.Name,
		Username:     fac.Username,
		Email:        null.NewString(fac.Email, fac.Email != ""),
		IsAdmin:      fac.IsAdmin,
		IsActive:     fac.IsActive,
		PasswordHash: null.BytesFrom(fac.PasswordHash),
		CreatedAt:    fac.CreatedAt.UTC(),
		UpdatedAt:    fac.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(fac.LastLogin.UTC(), !fac.LastLogin.IsZero()),
	}
}

func (repo *rosterRepository) QueryStudents(ctx context.Context, filter roster.StudentFilter) ([]roster.Student, error) {
	q := "SELECT id, name, original_section, merged_section FROM student"
	var args []interface{}
	switch {
	case filter.OriginalSection != "":
		q += " WHERE original_section = $1"
		args = append(args, filter.OriginalSection)
	case filter.MergedSection != "":
		q += " WHERE merged_section = $1"
		args = append(args, filter.MergedSection)
	}
	q += " ORDER BY id"

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *rosterRepository) GetStudent(ctx context.Context, id string) (roster.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT id, name, original_section, merged_section FROM student WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return roster.Student{}, roster.ErrStudentNotFound
		}
		return roster.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *rosterRepository) QuerySections(ctx context.Context) ([]roster.Section, error) {
	var rows []struct {
		Merged   string         `db:"merged_section"`
		Original pq.StringArray `db:"original_sections"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT merged_section, array_agg(DISTINCT original_section ORDER BY original_section) AS original_sections
		FROM student
		GROUP BY merged_section
		ORDER BY merged_section`)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}

	sections := make([]roster.Section, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, roster.Section{Merged: r.Merged, Original: r.Original})
	}
	return sections, nil
}

func (repo *rosterRepository) SectionSubjects(ctx context.Context, mergedSection string) ([]string, error) {
	var subjects []string
	err := repo.db.SelectContext(ctx, &subjects,
		"SELECT subject FROM section_subject WHERE merged_section = $1 ORDER BY subject", mergedSection)
	if err != nil {
		return nil, errors.Wrap(err, "querying section subjects")
	}
	return subjects, nil
}

func (repo *rosterRepository) GetFaculty(ctx context.Context, filter roster.FacultyFilter) (roster.Faculty, error) {
	q := "SELECT * FROM faculty WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		q += "id = $1"
		arg = filter.ID
	case filter.Username != "":
		q += "username = $1"
		arg = filter.Username
	case filter.Email != "":
		q += "email = $1"
		arg = filter.Email
	default:
		return roster.Faculty{}, roster.ErrFacultyNotFound
	}

	var row facultyRow
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return roster.Faculty{}, roster.ErrFacultyNotFound
		}
		return roster.Faculty{}, errors.Wrap(err, "getting faculty")
	}
	return row.toFaculty(), nil
}

func (repo *rosterRepository) QueryFaculty(ctx context.Context) ([]roster.Faculty, error) {
	var rows []facultyRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM faculty ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying faculty")
	}
	faculty := make([]roster.Faculty, 0, len(rows))
	for _, r := range rows {
		faculty = append(faculty, r.toFaculty())
	}
	return faculty, nil
}

func (repo *rosterRepository) CreateFaculty(ctx context.Context, fac roster.Faculty) (roster.Faculty, error) {
	row := newFacultyRow(fac)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO faculty (id, name, username, email, is_admin, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :is_admin, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return roster.Faculty{}, roster.ErrFacultyExists
		}
		return roster.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return fac, nil
}

func (repo *rosterRepository) UpdateFaculty(ctx context.Context, fac roster.Faculty) (roster.Faculty, error) {
	row := newFacultyRow(fac)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE faculty
		SET name = :name, username = :username, email = :email, is_admin = :is_admin,
		    is_active = :is_active, password_hash = :password_hash, updated_at = :updated_at,
		    last_login = :last_login
		WHERE id = :id`,
		row)
	if err != nil {
		return roster.Faculty{}, errors.Wrap(err, "updating faculty")
	}
	return fac, nil
}
