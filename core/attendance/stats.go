package attendance

import (
	"sort"
	"strings"
	"time"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/roster"
)

type (
	// StudentStat is one student's attended/conducted tally over a window.
	// Students with zero conducted classes in the window are never emitted.
	StudentStat struct {
		StudentID       string  `json:"student_id"`
		Name            string  `json:"name"`
		OriginalSection string  `json:"original_section"`
		Attended        int     `json:"attended"`
		Conducted       int     `json:"conducted"`
		Percentage      float64 `json:"percentage"`
	}

	// SectionSummary aggregates StudentStats per original section.
	SectionSummary struct {
		Section        string  `json:"section"`
		Students       int     `json:"students"`
		MeanPercentage float64 `json:"mean_percentage"`
		BelowTarget    int     `json:"below_target"`
	}

	SubjectRate struct {
		Subject    string  `json:"subject"`
		Records    int     `json:"records"`
		Percentage float64 `json:"percentage"`
	}

	DayRate struct {
		Day        string  `json:"day"`
		Records    int     `json:"records"`
		Percentage float64 `json:"percentage"`
	}

	TimeSlotRate struct {
		Period     Period  `json:"period"`
		Hour       int     `json:"hour"`
		Records    int     `json:"records"`
		Percentage float64 `json:"percentage"`
	}

	// OverviewReport is the admin statistics page payload.
	OverviewReport struct {
		Students       []StudentStat    `json:"students"`
		TotalStudents  int              `json:"total_students"`
		MeanAttendance float64          `json:"mean_attendance"`
		BelowTarget    int              `json:"below_target"`
		Sections       []SectionSummary `json:"sections"`
		Subjects       []SubjectRate    `json:"subjects"`
		Days           []DayRate        `json:"days"`
		TimeSlots      []TimeSlotRate   `json:"time_slots"`
	}
)

// FilterByDateRange keeps events within [from, to] inclusive; zero bounds
// are open.
func FilterByDateRange(events []Event, from, to time.Time) []Event {
	if from.IsZero() && to.IsZero() {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !from.IsZero() && e.Date.Before(truncateDay(from)) {
			continue
		}
		if !to.IsZero() && e.Date.After(truncateDay(to)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FilterBySubject keeps events matching the subject, case-insensitively.
// An empty subject keeps everything.
func FilterBySubject(events []Event, subject string) []Event {
	if subject == "" {
		return events
	}
	want := core.CleanString(subject, true /* lower */)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if strings.ToLower(e.Subject) == want {
			out = append(out, e)
		}
	}
	return out
}

// FilterByFaculty keeps events recorded by the named faculty member.
func FilterByFaculty(events []Event, faculty string) []Event {
	want := core.CleanString(faculty, true /* lower */)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if strings.ToLower(e.Faculty) == want {
			out = append(out, e)
		}
	}
	return out
}

// StudentStatistics tallies attended/conducted per student over the filtered,
// authoritative event set. `conducted` counts distinct (date, period) pairs
// with any event for the student; `attended` those whose status is Present.
// A student with conducted == 0 is excluded, never reported as 0%.
func StudentStatistics(students []roster.Student, events []Event) []StudentStat {
	events = Authoritative(events)

	type tally struct{ attended, conducted int }
	tallies := make(map[string]*tally, len(students))
	for _, e := range events {
		t, ok := tallies[e.StudentID]
		if !ok {
			t = &tally{}
			tallies[e.StudentID] = t
		}
		// authoritative events are already unique per (student, period, date)
		t.conducted++
		if e.Status == Present {
			t.attended++
		}
	}

	stats := make([]StudentStat, 0, len(students))
	for _, s := range students {
		t, ok := tallies[s.ID]
		if !ok || t.conducted == 0 {
			continue
		}
		stats = append(stats, StudentStat{
			StudentID:       s.ID,
			Name:            s.Name,
			OriginalSection: s.OriginalSection,
			Attended:        t.attended,
			Conducted:       t.conducted,
			Percentage:      core.Round2(float64(t.attended) / float64(t.conducted) * 100),
		})
	}
	return stats
}

// SectionOverview groups StudentStats by original section. BelowTarget counts
// students strictly under the target percentage.
func SectionOverview(stats []StudentStat, target float64) []SectionSummary {
	type acc struct {
		students int
		sum      float64
		below    int
	}
	accs := make(map[string]*acc)
	for _, st := range stats {
		a, ok := accs[st.OriginalSection]
		if !ok {
			a = &acc{}
			accs[st.OriginalSection] = a
		}
		a.students++
		a.sum += float64(st.Attended) / float64(st.Conducted) * 100
		if st.Percentage < target {
			a.below++
		}
	}

	out := make([]SectionSummary, 0, len(accs))
	for section, a := range accs {
		out = append(out, SectionSummary{
			Section:        section,
			Students:       a.students,
			MeanPercentage: core.Round2(a.sum / float64(a.students)),
			BelowTarget:    a.below,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section < out[j].Section })
	return out
}

// SubjectBreakdown reports the present-rate per subject.
func SubjectBreakdown(events []Event) []SubjectRate {
	events = Authoritative(events)

	type acc struct{ present, total int }
	accs := make(map[string]*acc)
	for _, e := range events {
		if e.Subject == "" {
			continue
		}
		a, ok := accs[e.Subject]
		if !ok {
			a = &acc{}
			accs[e.Subject] = a
		}
		a.total++
		if e.Status == Present {
			a.present++
		}
	}

	out := make([]SubjectRate, 0, len(accs))
	for subject, a := range accs {
		out = append(out, SubjectRate{
			Subject:    subject,
			Records:    a.total,
			Percentage: core.Round2(float64(a.present) / float64(a.total) * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

var weekDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
}

// DayOfWeekBreakdown reports the present-rate per teaching day, Monday
// through Saturday in that order. Days with no records are skipped.
func DayOfWeekBreakdown(events []Event) []DayRate {
	events = Authoritative(events)

	type acc struct{ present, total int }
	accs := make(map[time.Weekday]*acc)
	for _, e := range events {
		a, ok := accs[e.Date.Weekday()]
		if !ok {
			a = &acc{}
			accs[e.Date.Weekday()] = a
		}
		a.total++
		if e.Status == Present {
			a.present++
		}
	}

	out := make([]DayRate, 0, len(accs))
	for _, day := range weekDays {
		a, ok := accs[day]
		if !ok {
			continue
		}
		out = append(out, DayRate{
			Day:        day.String(),
			Records:    a.total,
			Percentage: core.Round2(float64(a.present) / float64(a.total) * 100),
		})
	}
	return out
}

// TimeSlotBreakdown reports the present-rate per (period, hour-of-day).
func TimeSlotBreakdown(events []Event) []TimeSlotRate {
	events = Authoritative(events)

	type key struct {
		period Period
		hour   int
	}
	type acc struct{ present, total int }
	accs := make(map[key]*acc)
	for _, e := range events {
		k := key{period: e.Period, hour: e.TimeOfDay.Hour()}
		a, ok := accs[k]
		if !ok {
			a = &acc{}
			accs[k] = a
		}
		a.total++
		if e.Status == Present {
			a.present++
		}
	}

	out := make([]TimeSlotRate, 0, len(accs))
	for k, a := range accs {
		out = append(out, TimeSlotRate{
			Period:     k.period,
			Hour:       k.hour,
			Records:    a.total,
			Percentage: core.Round2(float64(a.present) / float64(a.total) * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// BuildOverview assembles the full admin statistics report.
func BuildOverview(students []roster.Student, events []Event, target float64) *OverviewReport {
	stats := StudentStatistics(students, events)

	var sum float64
	var below int
	for _, st := range stats {
		sum += float64(st.Attended) / float64(st.Conducted) * 100
		if st.Percentage < target {
			below++
		}
	}
	var mean float64
	if len(stats) > 0 {
		mean = core.Round2(sum / float64(len(stats)))
	}

	return &OverviewReport{
		Students:       stats,
		TotalStudents:  len(stats),
		MeanAttendance: mean,
		BelowTarget:    below,
		Sections:       SectionOverview(stats, target),
		Subjects:       SubjectBreakdown(events),
		Days:           DayOfWeekBreakdown(events),
		TimeSlots:      TimeSlotBreakdown(events),
	}
}
