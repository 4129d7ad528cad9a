package roster

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/classledger/backend/core"
)

var (
	// errors
	ErrStudentNotFound = errors.New("student not found")
	ErrFacultyNotFound = errors.New("faculty not found")
	ErrFacultyExists   = errors.New("a faculty member with this username or email already exists")
)

type (
	Repository interface {
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		QuerySections(ctx context.Context) ([]Section, error)
		// SectionSubjects lists the subjects mapped to a merged section.
		SectionSubjects(ctx context.Context, mergedSection string) ([]string, error)

		GetFaculty(ctx context.Context, filter FacultyFilter) (Faculty, error)
		QueryFaculty(ctx context.Context) ([]Faculty, error)
		CreateFaculty(ctx context.Context, fac Faculty) (Faculty, error)
		UpdateFaculty(ctx context.Context, fac Faculty) (Faculty, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

func (svc *Service) QuerySections(ctx context.Context) ([]Section, error) {
	return svc.repo.QuerySections(ctx)
}

func (svc *Service) SectionSubjects(ctx context.Context, mergedSection string) ([]string, error) {
	return svc.repo.SectionSubjects(ctx, core.CleanString(mergedSection))
}

func (svc *Service) GetFacultyByID(ctx context.Context, id string) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, FacultyFilter{ID: id})
}

func (svc *Service) GetFacultyByUsername(ctx context.Context, uname string) (Faculty, error) {
	return svc.repo.GetFaculty(ctx, FacultyFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) QueryFaculty(ctx context.Context) ([]Faculty, error) {
	return svc.repo.QueryFaculty(ctx)
}

func (svc *Service) CreateFaculty(ctx context.Context, nf NewFaculty) (Faculty, error) {
	nf.Clean()
	now := time.Now().UTC()
	fac := Faculty{
		ID:        uuid.New().String(),
		Name:      nf.Name,
		Username:  nf.Username,
		Email:     nf.Email,
		IsAdmin:   nf.IsAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := fac.SetPassword(nf.Password); err != nil {
		return Faculty{}, err
	}
	return svc.repo.CreateFaculty(ctx, fac)
}

func (svc *Service) SetPassword(ctx context.Context, fac Faculty, pwd string) (Faculty, error) {
	if err := fac.SetPassword(pwd); err != nil {
		return Faculty{}, err
	}
	fac.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateFaculty(ctx, fac)
}

func (svc *Service) SetLastLogin(ctx context.Context, fac Faculty) (Faculty, error) {
	fac.LastLogin = time.Now().UTC()
	return svc.repo.UpdateFaculty(ctx, fac)
}
