package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/roster"
)

type (
	// Repository is the row-store collaborator holding the per
	// (student, period) append-only logs. The core never touches storage
	// technology; it only needs these primitives.
	Repository interface {
		// QueryLogs returns the logs matching the filter, one per
		// (student, period) with roster context attached.
		QueryLogs(ctx context.Context, filter LogFilter) ([]StudentLog, error)

		// AppendMarks runs build inside the store's critical section for key.
		// Implementations must serialize concurrent calls on the same key,
		// hand build a fresh read of the key's section logs, and persist the
		// returned entries atomically. A build error aborts the transaction
		// with nothing written and is returned unwrapped.
		AppendMarks(ctx context.Context, key SessionKey, build func(current []StudentLog) ([]NewEntry, error)) error
	}

	Service struct {
		repo   Repository
		roster roster.Repository
		conf   *core.Config
		logger core.Logger
		mail   core.EmailService
	}
)

func NewService(repo Repository, rosterRepo roster.Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		roster: rosterRepo,
		conf:   conf,
		logger: logger,
		mail:   mailSvc,
	}
}

// now returns the current instant in school time.
func (svc *Service) now() time.Time {
	return time.Now().In(svc.conf.Location())
}

// StudentStatistics reports attended/conducted/percentage per student of an
// original (reporting) section, optionally date-filtered.
func (svc *Service) StudentStatistics(ctx context.Context, section string, from, to time.Time) ([]StudentStat, error) {
	students, err := svc.roster.QueryStudents(ctx, roster.StudentFilter{OriginalSection: section})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	logs, err := svc.repo.QueryLogs(ctx, LogFilter{OriginalSection: section})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, malformed := DecodeAll(logs)
	if malformed > 0 {
		svc.logger.Warn(fmt.Sprintf("statistics for %s: %d malformed records skipped", section, malformed))
	}

	return StudentStatistics(students, FilterByDateRange(events, from, to)), nil
}

// SubjectAnalysis reports per-student attendance for one subject of a merged
// (scheduling) section.
func (svc *Service) SubjectAnalysis(ctx context.Context, section, subject string, from, to time.Time) ([]StudentStat, error) {
	students, err := svc.roster.QueryStudents(ctx, roster.StudentFilter{MergedSection: section})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	logs, err := svc.repo.QueryLogs(ctx, LogFilter{MergedSection: section})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, malformed := DecodeAll(logs)
	if malformed > 0 {
		svc.logger.Warn(fmt.Sprintf("subject analysis for %s: %d malformed records skipped", section, malformed))
	}

	events = FilterBySubject(FilterByDateRange(events, from, to), subject)
	return StudentStatistics(students, events), nil
}

// Overview assembles the admin statistics report over every section,
// optionally date-filtered.
func (svc *Service) Overview(ctx context.Context, from, to time.Time) (*OverviewReport, error) {
	students, err := svc.roster.QueryStudents(ctx, roster.StudentFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	logs, err := svc.repo.QueryLogs(ctx, LogFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, malformed := DecodeAll(logs)
	if malformed > 0 {
		svc.logger.Warn(fmt.Sprintf("overview: %d malformed records skipped", malformed))
	}

	return BuildOverview(students, FilterByDateRange(events, from, to), svc.conf.AttendanceTarget), nil
}

// SessionState is the pre-form duplicate check for today's
// (merged section, period).
func (svc *Service) SessionState(ctx context.Context, section string, period Period) (MarkingState, error) {
	logs, err := svc.repo.QueryLogs(ctx, LogFilter{MergedSection: section, Period: period})
	if err != nil {
		return MarkingState{}, errors.Wrap(err, "querying logs")
	}
	events, _ := DecodeAll(logs)
	return CheckMarking(events, svc.now().Format(DateLayout)), nil
}

// PreviousPattern returns the latest authoritative statuses of the period
// preceding the given one, as a prefill aid for the marking form.
func (svc *Service) PreviousPattern(ctx context.Context, section string, period Period) (map[string]Status, error) {
	idx := -1
	for i, p := range AllPeriods {
		if p == period {
			idx = i
		}
	}
	if idx <= 0 {
		return nil, nil // P1 has no predecessor
	}
	prev := AllPeriods[idx-1]

	logs, err := svc.repo.QueryLogs(ctx, LogFilter{MergedSection: section, Period: prev})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, _ := DecodeAll(logs)
	today := svc.now().Format(DateLayout)

	pattern := make(map[string]Status)
	for _, e := range Authoritative(events) {
		if e.DateKey() == today {
			pattern[e.StudentID] = e.Status
		}
	}
	return pattern, nil
}

// Mark records one faculty submission for a (merged section, period).
// The duplicate check runs inside the store's critical section so two racing
// submissions for the same key cannot both pass. Unknown students are
// rejected individually without blocking their siblings; a same-day conflict
// blocks the whole submission before anything is written.
func (svc *Service) Mark(ctx context.Context, req MarkRequest) (*MarkResult, error) {
	fac, err := svc.roster.GetFaculty(ctx, roster.FacultyFilter{ID: req.FacultyID})
	if err != nil {
		return nil, errors.Wrap(err, "getting faculty")
	}

	now := svc.now()
	key := SessionKey{Section: req.Section, Period: req.Period, Date: now.Format(DateLayout)}

	// Resolve students up front; unknown ones are rejected without blocking
	// their siblings and need no access to the store's critical section.
	result := &MarkResult{}
	entries := make([]NewEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if _, err := svc.roster.GetStudent(ctx, entry.StudentID); err != nil {
			if errors.Cause(err) == roster.ErrStudentNotFound {
				result.Rejected = append(result.Rejected, Rejection{
					StudentID: entry.StudentID,
					Code:      ReasonStudentNotFound,
					Reason:    "student not found",
				})
				continue
			}
			return nil, errors.Wrap(err, "getting student")
		}
		entries = append(entries, NewEntry{
			StudentID: entry.StudentID,
			Period:    req.Period,
			Token: Encode(Event{
				Date:      now,
				TimeOfDay: now,
				Status:    entry.Status,
				Faculty:   fac.Name,
				Subject:   req.Subject,
				Note:      req.Note,
			}),
		})
	}

	err = svc.repo.AppendMarks(ctx, key, func(current []StudentLog) ([]NewEntry, error) {
		// second duplicate check, now inside the critical section
		events, _ := DecodeAll(current)
		if state := CheckMarking(events, key.Date); state.Blocked {
			return nil, &ConflictError{
				Section: req.Section,
				Period:  req.Period,
				Faculty: state.Faculty,
				Date:    state.Date,
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	result.Marked = len(entries)
	return result, nil
}

// MissingCoverage reports, per period, the merged sections with no recorded
// event on the given date.
func (svc *Service) MissingCoverage(ctx context.Context, date time.Time) ([]CoverageGap, error) {
	sections, err := svc.roster.QuerySections(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	merged := make([]string, 0, len(sections))
	for _, s := range sections {
		merged = append(merged, s.Merged)
	}

	logs, err := svc.repo.QueryLogs(ctx, LogFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying logs")
	}
	events, _ := DecodeAll(logs)

	return MissingCoverage(merged, events, date.Format(DateLayout)), nil
}

// NotifyCoverageGaps emails the day's missing-coverage digest to the
// configured admin address.
func (svc *Service) NotifyCoverageGaps(ctx context.Context, date time.Time) error {
	gaps, err := svc.MissingCoverage(ctx, date)
	if err != nil {
		return err
	}

	dateKey := date.Format(DateLayout)
	var body strings.Builder
	if len(gaps) == 0 {
		fmt.Fprintf(&body, "All sections have attendance recorded for every period on %s.\n", dateKey)
	} else {
		fmt.Fprintf(&body, "Sections missing attendance on %s:\n\n", dateKey)
		for _, gap := range gaps {
			fmt.Fprintf(&body, "%s: %s\n", gap.Period, strings.Join(gap.MissingSections, ", "))
		}
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:          []mail.Address{{Address: svc.conf.AdminEmail}},
		Subject:     fmt.Sprintf("Missing attendance report for %s", dateKey),
		TextContent: body.String(),
	})
	return nil
}
