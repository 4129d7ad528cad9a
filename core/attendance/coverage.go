package attendance

import "sort"

// CoverageGap lists the merged sections with no recorded event for one
// period on the target date.
type CoverageGap struct {
	Period          Period   `json:"period"`
	MissingSections []string `json:"missing_sections"`
}

// MissingCoverage reports, per period, the known merged sections with zero
// events on the given date. Periods where every section is covered are
// omitted. Expectation is inferred from the roster alone — every known
// section is assumed to hold a class every period, since no timetable entity
// exists to consult.
func MissingCoverage(sections []string, events []Event, dateKey string) []CoverageGap {
	covered := make(map[Period]map[string]bool, len(AllPeriods))
	for _, p := range AllPeriods {
		covered[p] = make(map[string]bool)
	}
	for _, e := range events {
		if e.DateKey() != dateKey {
			continue
		}
		if m, ok := covered[e.Period]; ok {
			m[e.MergedSection] = true
		}
	}

	var gaps []CoverageGap
	for _, p := range AllPeriods {
		var missing []string
		for _, s := range sections {
			if !covered[p][s] {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			gaps = append(gaps, CoverageGap{Period: p, MissingSections: missing})
		}
	}
	return gaps
}
