package workload

import (
	"sort"
	"strings"

	"github.com/classledger/backend/core/attendance"
)

// SessionLoad is one section's share of a single teaching session. A session
// that jointly covered N merged sections credits 1/N to each, so the shares
// of one (date, period, subject) group always sum to exactly 1.0.
type SessionLoad struct {
	Date             string            `json:"date"` // DD/MM/YYYY
	Time             string            `json:"time"`
	Period           attendance.Period `json:"period"`
	Subject          string            `json:"subject"`
	Section          string            `json:"section"`
	CombinedSections []string          `json:"combined_sections"`
	Load             float64           `json:"load"`
}

// Distribute converts per-student attendance events into fair instructional
// load credit. Events are grouped by (date, period) and then partitioned by
// subject: a faculty member running concurrent but distinct sessions for
// different cohorts in the same period earns full credit for each subject,
// while sections taught jointly under one subject split that subject's single
// credit. Loads carry full float precision; rounding belongs to report DTOs.
func Distribute(events []attendance.Event) []SessionLoad {
	events = attendance.Authoritative(events)

	type groupKey struct {
		date    string
		period  attendance.Period
		subject string
	}
	type group struct {
		time     string
		sections map[string]bool
	}

	groups := make(map[groupKey]*group)
	var order []groupKey
	for _, e := range events {
		k := groupKey{date: e.DateKey(), period: e.Period, subject: e.Subject}
		g, ok := groups[k]
		if !ok {
			g = &group{
				time:     strings.ToLower(e.TimeOfDay.Format(attendance.TimeLayout)),
				sections: make(map[string]bool),
			}
			groups[k] = g
			order = append(order, k)
		}
		g.sections[e.MergedSection] = true
	}

	var loads []SessionLoad
	for _, k := range order {
		g := groups[k]
		combined := make([]string, 0, len(g.sections))
		for s := range g.sections {
			combined = append(combined, s)
		}
		sort.Strings(combined)

		share := 1 / float64(len(combined))
		for _, section := range combined {
			loads = append(loads, SessionLoad{
				Date:             k.date,
				Time:             g.time,
				Period:           k.period,
				Subject:          k.subject,
				Section:          section,
				CombinedSections: combined,
				Load:             share,
			})
		}
	}
	return loads
}
