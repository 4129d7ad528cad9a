package attendance

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classledger/backend/core"
)

// Period is one of the six fixed daily class slots.
type Period string

const (
	P1 Period = "P1"
	P2 Period = "P2"
	P3 Period = "P3"
	P4 Period = "P4"
	P5 Period = "P5"
	P6 Period = "P6"
)

// AllPeriods in schedule order.
var AllPeriods = []Period{P1, P2, P3, P4, P5, P6}

func ParsePeriod(s string) (Period, error) {
	for _, p := range AllPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid period %q", s)
}

type Status string

const (
	Present Status = "P"
	Absent  Status = "A"
)

// Event is one immutable record of a student's status for one class
// occurrence. Events are append-only: corrections are new events appended
// after the old one, and the last event for a given (student, period, date)
// is authoritative at read time.
type Event struct {
	StudentID       string    `json:"student_id"`
	OriginalSection string    `json:"original_section"`
	MergedSection   string    `json:"merged_section"`
	Period          Period    `json:"period"`
	Date            time.Time `json:"date"` // calendar day, school timezone
	TimeOfDay       time.Time `json:"-"`    // clock time only; date part is meaningless
	Status          Status    `json:"status"`
	Faculty         string    `json:"faculty"`
	Subject         string    `json:"subject"`
	Note            string    `json:"note"`
}

// DateKey renders the event's calendar day in the ledger's wire format.
func (e Event) DateKey() string { return e.Date.Format(DateLayout) }

// supersessionKey identifies the at-most-one-authoritative-status scope.
func (e Event) supersessionKey() string {
	return e.StudentID + "\x00" + string(e.Period) + "\x00" + e.DateKey()
}

// StudentLog is one (student, period) append-only log as handed over by the
// backing store, together with the roster context needed for aggregation.
type StudentLog struct {
	StudentID       string
	StudentName     string
	OriginalSection string
	MergedSection   string
	Period          Period
	Log             string
}

// LogFilter narrows Repository.QueryLogs; zero-value fields are ignored.
type LogFilter struct {
	StudentID       string
	OriginalSection string
	MergedSection   string
	Period          Period
}

// MarkEntry is one student's status in a marking submission.
type MarkEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=P A"`
}

// MarkRequest is a faculty member's per-section, per-period submission.
// The faculty identity comes from the authenticated context, never the body.
type MarkRequest struct {
	Section string      `json:"section" validate:"required"` // merged section
	Period  Period      `json:"period" validate:"required,period"`
	Subject string      `json:"subject" validate:"required"`
	Note    string      `json:"note" validate:"required"` // lesson/topic; empty rejects the submission
	Entries []MarkEntry `json:"entries" validate:"required,min=1,dive"`

	FacultyID string `json:"-"`
}

func (r *MarkRequest) Validate(validate *validator.Validate) error {
	r.Section = core.CleanString(r.Section)
	r.Subject = core.CleanString(r.Subject)
	r.Note = core.CleanString(r.Note)
	return validate.Struct(r)
}

// Rejection reason codes surfaced to the caller.
const (
	ReasonStudentNotFound = "STUDENT_NOT_FOUND"
)

type Rejection struct {
	StudentID string `json:"student_id"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// MarkResult reports a partially-successful submission: rejected entries
// never block their siblings.
type MarkResult struct {
	Marked   int         `json:"marked"`
	Rejected []Rejection `json:"rejected"`
}

// ConflictError blocks a whole submission: the (section, period) was already
// marked today by another (or the same) faculty member.
type ConflictError struct {
	Section string
	Period  Period
	Faculty string
	Date    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("attendance for %s %s has already been marked by %s on %s",
		e.Section, e.Period, e.Faculty, e.Date)
}

// NewEntry is an encoded token ready to be appended to a (student, period) log.
type NewEntry struct {
	StudentID string
	Period    Period
	Token     string
}

// SessionKey scopes the duplicate guard and the store's critical section.
type SessionKey struct {
	Section string
	Period  Period
	Date    string // DD/MM/YYYY, submission day
}

func (k SessionKey) String() string {
	return k.Section + "/" + string(k.Period) + "/" + k.Date
}
