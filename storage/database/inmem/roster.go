package inmemdb

import (
	"context"
	"sort"

	"github.com/classledger/backend/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) QueryStudents(_ context.Context, filter roster.StudentFilter) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []roster.Student
	for _, s := range repo.db.students {
		if filter.OriginalSection != "" && s.OriginalSection != filter.OriginalSection {
			continue
		}
		if filter.MergedSection != "" && s.MergedSection != filter.MergedSection {
			continue
		}
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *rosterRepository) GetStudent(_ context.Context, id string) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return *s, nil
	}
	return roster.Student{}, roster.ErrStudentNotFound
}

func (repo *rosterRepository) QuerySections(_ context.Context) ([]roster.Section, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	origByMerged := make(map[string]map[string]bool)
	for _, s := range repo.db.students {
		if origByMerged[s.MergedSection] == nil {
			origByMerged[s.MergedSection] = make(map[string]bool)
		}
		origByMerged[s.MergedSection][s.OriginalSection] = true
	}

	sections := make([]roster.Section, 0, len(origByMerged))
	for merged, origs := range origByMerged {
		sec := roster.Section{Merged: merged}
		for o := range origs {
			sec.Original = append(sec.Original, o)
		}
		sort.Strings(sec.Original)
		sections = append(sections, sec)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Merged < sections[j].Merged })
	return sections, nil
}

func (repo *rosterRepository) SectionSubjects(_ context.Context, mergedSection string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := append([]string(nil), repo.db.subjects[mergedSection]...)
	sort.Strings(subjects)
	return subjects, nil
}

func (repo *rosterRepository) GetFaculty(_ context.Context, filter roster.FacultyFilter) (roster.Faculty, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, f := range repo.db.faculty {
		switch {
		case filter.ID != "" && f.ID == filter.ID,
			filter.Username != "" && f.Username == filter.Username,
			filter.Email != "" && f.Email == filter.Email:
			return *f, nil
		}
	}
	return roster.Faculty{}, roster.ErrFacultyNotFound
}

func (repo *rosterRepository) QueryFaculty(_ context.Context) ([]roster.Faculty, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	faculty := make([]roster.Faculty, 0, len(repo.db.faculty))
	for _, f := range repo.db.faculty {
		faculty = append(faculty, *f)
	}
	sort.Slice(faculty, func(i, j int) bool { return faculty[i].Name < faculty[j].Name })
	return faculty, nil
}

func (repo *rosterRepository) CreateFaculty(_ context.Context, fac roster.Faculty) (roster.Faculty, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, f := range repo.db.faculty {
		if f.Username == fac.Username || (fac.Email != "" && f.Email == fac.Email) {
			return roster.Faculty{}, roster.ErrFacultyExists
		}
	}
	repo.db.faculty[fac.ID] = &fac
	return fac, nil
}

func (repo *rosterRepository) UpdateFaculty(_ context.Context, fac roster.Faculty) (roster.Faculty, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.faculty[fac.ID]; !ok {
		return roster.Faculty{}, roster.ErrFacultyNotFound
	}
	repo.db.faculty[fac.ID] = &fac
	return fac, nil
}
