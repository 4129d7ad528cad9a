package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
	"github.com/classledger/backend/core/roster"
)

// Report summarizes one faculty member's instructional load over a window.
// All numbers here are presentation-ready: percentages and loads are rounded
// to 2 decimals at this boundary only.
type Report struct {
	FacultyID           string             `json:"faculty_id"`
	FacultyName         string             `json:"faculty_name"`
	TotalClasses        int                `json:"total_classes"` // distinct (date, period) pairs
	TotalLoad           float64            `json:"total_load"`
	DaysEngaged         int                `json:"days_engaged"`
	DailyAverage        float64            `json:"daily_average"`
	UniqueSubjects      int                `json:"unique_subjects"`
	UniqueSections      int                `json:"unique_sections"`
	SubjectDistribution map[string]float64 `json:"subject_distribution"`
	SectionDistribution map[string]float64 `json:"section_distribution"`
	Sessions            []SessionLoad      `json:"sessions"`
}

type Service struct {
	repo   attendance.Repository
	roster roster.Repository
	logger core.Logger
}

func NewService(repo attendance.Repository, rosterRepo roster.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, roster: rosterRepo, logger: logger}
}

// FacultyReport builds the workload report for one faculty member.
func (svc *Service) FacultyReport(ctx context.Context, facultyID string, from, to time.Time) (*Report, error) {
	fac, err := svc.roster.GetFaculty(ctx, roster.FacultyFilter{ID: facultyID})
	if err != nil {
		return nil, errors.Wrap(err, "getting faculty")
	}

	events, err := svc.facultyEvents(ctx, fac.Name, from, to)
	if err != nil {
		return nil, err
	}
	return buildReport(fac, events), nil
}

// AllFacultyReports builds a report per known faculty member over one shared
// event scan.
func (svc *Service) AllFacultyReports(ctx context.Context, from, to time.Time) ([]*Report, error) {
	faculty, err := svc.roster.QueryFaculty(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying faculty")
	}

	logs, err := svc.repo.QueryLogs(ctx, attendance.LogFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, malformed := attendance.DecodeAll(logs)
	if malformed > 0 {
		svc.logger.Warn(fmt.Sprintf("workload: %d malformed records skipped", malformed))
	}
	events = attendance.FilterByDateRange(events, from, to)

	reports := make([]*Report, 0, len(faculty))
	for _, fac := range faculty {
		reports = append(reports, buildReport(fac, attendance.FilterByFaculty(events, fac.Name)))
	}
	return reports, nil
}

func (svc *Service) facultyEvents(ctx context.Context, facultyName string, from, to time.Time) ([]attendance.Event, error) {
	logs, err := svc.repo.QueryLogs(ctx, attendance.LogFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, malformed := attendance.DecodeAll(logs)
	if malformed > 0 {
		svc.logger.Warn(fmt.Sprintf("workload for %s: %d malformed records skipped", facultyName, malformed))
	}
	return attendance.FilterByFaculty(attendance.FilterByDateRange(events, from, to), facultyName), nil
}

func buildReport(fac roster.Faculty, events []attendance.Event) *Report {
	loads := Distribute(events)

	var total float64
	days := make(map[string]bool)
	classes := make(map[string]bool)
	subjectDist := make(map[string]float64)
	sectionDist := make(map[string]float64)
	for _, l := range loads {
		total += l.Load
		days[l.Date] = true
		classes[l.Date+"\x00"+string(l.Period)] = true
		subjectDist[l.Subject] += l.Load
		sectionDist[l.Section] += l.Load
	}
	for k, v := range subjectDist {
		subjectDist[k] = core.Round2(v)
	}
	for k, v := range sectionDist {
		sectionDist[k] = core.Round2(v)
	}

	var dailyAvg float64
	if len(days) > 0 {
		dailyAvg = core.Round2(total / float64(len(days)))
	}

	return &Report{
		FacultyID:           fac.ID,
		FacultyName:         fac.Name,
		TotalClasses:        len(classes),
		TotalLoad:           core.Round2(total),
		DaysEngaged:         len(days),
		DailyAverage:        dailyAvg,
		UniqueSubjects:      len(subjectDist),
		UniqueSections:      len(sectionDist),
		SubjectDistribution: subjectDist,
		SectionDistribution: sectionDist,
		Sessions:            loads,
	}
}
