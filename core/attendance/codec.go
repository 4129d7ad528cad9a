package attendance

import (
	"strings"
	"time"

	"github.com/classledger/backend/core"
)

// Wire format, inherited verbatim from the legacy ledger for compatibility:
//
//	DD/MM/YYYY_H:MMpm_STATUS_FACULTY_SUBJECT_NOTE
//
// `_` separates fields, newline separates records. A record needs at least
// the first 4 fields to be well formed; subject and note are optional
// trailing fields, and any extra separators past the subject belong to the
// note. Legacy records sometimes carry the status only as a `_P_`/`_A_`
// marker substring; the decoder accepts both spellings.
const (
	FieldSep  = "_"
	RecordSep = "\n"

	DateLayout = "02/01/2006"
	TimeLayout = "3:04pm"

	minFields = 4
)

var legacyTimeLayouts = []string{"3:04pm", "3:04PM", "03:04PM", "15:04"}

// sanitizeField keeps the field separator out of free-text field values.
// The legacy writer never escaped, which produced unparseable records; we
// substitute rather than escape so old decoders stay compatible.
func sanitizeField(s string) string {
	return strings.ReplaceAll(core.CleanString(s), FieldSep, "-")
}

// Encode renders a single event as one delimited token.
func Encode(e Event) string {
	fields := []string{
		e.Date.Format(DateLayout),
		strings.ToLower(e.TimeOfDay.Format(TimeLayout)),
		string(e.Status),
		sanitizeField(e.Faculty),
		sanitizeField(e.Subject),
		sanitizeField(e.Note),
	}
	return strings.Join(fields, FieldSep)
}

// AppendRecord appends a token to a (student, period) log. The log is
// write-once-append-only at the textual level; supersession of earlier
// records with the same (student, period, date) happens only at decode time.
func AppendRecord(log, token string) string {
	if strings.TrimSpace(log) == "" {
		return token
	}
	return log + RecordSep + token
}

// DecodeLog splits a log into events in original append order and counts the
// records it had to drop. Malformed records (too few fields, unparseable
// date/time, unknown status) are skipped and counted, never fatal.
func DecodeLog(log string) ([]Event, int) {
	var events []Event
	var malformed int

	for _, record := range strings.Split(log, RecordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		e, ok := decodeRecord(record)
		if !ok {
			malformed++
			continue
		}
		events = append(events, e)
	}
	return events, malformed
}

func decodeRecord(record string) (Event, bool) {
	parts := strings.Split(record, FieldSep)
	if len(parts) < minFields {
		return Event{}, false
	}

	date, err := time.Parse(DateLayout, parts[0])
	if err != nil {
		return Event{}, false
	}
	tod, ok := parseTimeOfDay(parts[1])
	if !ok {
		return Event{}, false
	}
	status, ok := parseStatus(parts[2], record)
	if !ok {
		return Event{}, false
	}

	e := Event{
		Date:      date,
		TimeOfDay: tod,
		Status:    status,
		Faculty:   parts[3],
	}
	if len(parts) > 4 {
		e.Subject = parts[4]
	}
	if len(parts) > 5 {
		// the note may itself have contained separators before sanitizing
		// existed; everything past the subject is the note
		e.Note = strings.Join(parts[5:], FieldSep)
	}
	return e, true
}

func parseTimeOfDay(s string) (time.Time, bool) {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, strings.ToLower(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseStatus(field, record string) (Status, bool) {
	switch strings.ToUpper(field) {
	case "P":
		return Present, true
	case "A":
		return Absent, true
	}
	// legacy convention: status embedded as a marker substring
	if strings.Contains(record, FieldSep+"P"+FieldSep) {
		return Present, true
	}
	if strings.Contains(record, FieldSep+"A"+FieldSep) {
		return Absent, true
	}
	return "", false
}

// DecodeAll decodes a batch of store logs, attaching the roster context each
// log carries to every event decoded from it. The total malformed count is
// accumulated across logs.
func DecodeAll(logs []StudentLog) ([]Event, int) {
	var events []Event
	var malformed int

	for _, sl := range logs {
		decoded, bad := DecodeLog(sl.Log)
		malformed += bad
		for _, e := range decoded {
			e.StudentID = sl.StudentID
			e.OriginalSection = sl.OriginalSection
			e.MergedSection = sl.MergedSection
			e.Period = sl.Period
			events = append(events, e)
		}
	}
	return events, malformed
}

// Authoritative collapses superseded records: for each (student, period,
// date) only the last-appended event survives, in the order the surviving
// events were appended. Earlier events stay in the log but never reach
// aggregation.
func Authoritative(events []Event) []Event {
	last := make(map[string]int, len(events))
	for i, e := range events {
		last[e.supersessionKey()] = i
	}

	out := make([]Event, 0, len(last))
	for i, e := range events {
		if last[e.supersessionKey()] == i {
			out = append(out, e)
		}
	}
	return out
}
