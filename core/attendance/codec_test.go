package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("mustDate(%s) failed: %v", s, err)
	}
	return d
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tod, err := time.Parse(TimeLayout, s)
	if err != nil {
		t.Fatalf("mustTime(%s) failed: %v", s, err)
	}
	return tod
}

func Test_Encode(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name: "full record",
			event: Event{
				Date:      mustDate(t, "15/01/2024"),
				TimeOfDay: mustTime(t, "9:30am"),
				Status:    Present,
				Faculty:   "Dr. Smith",
				Subject:   "Mathematics",
				Note:      "Linear equations",
			},
			want: "15/01/2024_9:30am_P_Dr. Smith_Mathematics_Linear equations",
		},
		{
			name: "separator in free text is substituted",
			event: Event{
				Date:      mustDate(t, "15/01/2024"),
				TimeOfDay: mustTime(t, "2:00pm"),
				Status:    Absent,
				Faculty:   "Prof_Jones",
				Subject:   "CS_101",
				Note:      "Unit_Test_Review",
			},
			want: "15/01/2024_2:00pm_A_Prof-Jones_CS-101_Unit-Test-Review",
		},
		{
			name: "empty optional fields",
			event: Event{
				Date:      mustDate(t, "01/02/2024"),
				TimeOfDay: mustTime(t, "11:00am"),
				Status:    Present,
				Faculty:   "Dr. Smith",
			},
			want: "01/02/2024_11:00am_P_Dr. Smith__",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.event); got != tt.want {
				t.Errorf("Encode() = %q; want %q", got, tt.want)
			}
		})
	}
}

func Test_Encode_roundTrip(t *testing.T) {
	e := Event{
		Date:      mustDate(t, "15/01/2024"),
		TimeOfDay: mustTime(t, "9:30am"),
		Status:    Present,
		Faculty:   "Dr. Smith",
		Subject:   "Mathematics",
		Note:      "Linear equations",
	}

	events, malformed := DecodeLog(Encode(e))
	if malformed != 0 {
		t.Fatalf("DecodeLog() malformed = %d; want 0", malformed)
	}
	if len(events) != 1 {
		t.Fatalf("DecodeLog() len = %d; want 1", len(events))
	}

	got := events[0]
	assert.Equal(t, e.Date, got.Date)
	assert.Equal(t, e.Status, got.Status)
	assert.Equal(t, e.Faculty, got.Faculty)
	assert.Equal(t, e.Subject, got.Subject)
	assert.Equal(t, e.Note, got.Note)
	assert.Equal(t, "9:30am", got.TimeOfDay.Format(TimeLayout))
}

func Test_AppendRecord(t *testing.T) {
	log := AppendRecord("", "15/01/2024_9:30am_P_Smith_Math_Notes")
	if want := "15/01/2024_9:30am_P_Smith_Math_Notes"; log != want {
		t.Errorf("AppendRecord() = %q; want %q", log, want)
	}

	log = AppendRecord(log, "16/01/2024_9:30am_A_Smith_Math_Notes")
	want := "15/01/2024_9:30am_P_Smith_Math_Notes\n16/01/2024_9:30am_A_Smith_Math_Notes"
	if log != want {
		t.Errorf("AppendRecord() = %q; want %q", log, want)
	}
}

func Test_DecodeLog(t *testing.T) {
	tests := []struct {
		name          string
		log           string
		wantLen       int
		wantMalformed int
	}{
		{
			name:          "empty log",
			log:           "",
			wantLen:       0,
			wantMalformed: 0,
		},
		{
			name:          "blank lines are skipped silently",
			log:           "\n\n15/01/2024_9:30am_P_Smith\n\n",
			wantLen:       1,
			wantMalformed: 0,
		},
		{
			name:          "too few fields",
			log:           "15/01/2024_9:30am_P",
			wantLen:       0,
			wantMalformed: 1,
		},
		{
			name:          "unparseable date",
			log:           "2024-01-15_9:30am_P_Smith_Math_Notes",
			wantLen:       0,
			wantMalformed: 1,
		},
		{
			name:          "unparseable time",
			log:           "15/01/2024_morning_P_Smith_Math_Notes",
			wantLen:       0,
			wantMalformed: 1,
		},
		{
			name:          "unknown status without legacy marker",
			log:           "15/01/2024_9:30am_X_Smith",
			wantLen:       0,
			wantMalformed: 1,
		},
		{
			name:          "good records survive a bad neighbor",
			log:           "15/01/2024_9:30am_P_Smith_Math_Notes\ngarbage\n16/01/2024_9:30am_A_Smith_Math_Notes",
			wantLen:       2,
			wantMalformed: 1,
		},
		{
			name:          "minimum 4 fields is enough",
			log:           "15/01/2024_9:30am_P_Smith",
			wantLen:       1,
			wantMalformed: 0,
		},
		{
			name:          "uppercase time layout accepted",
			log:           "15/01/2024_09:30AM_P_Smith_Math_Notes",
			wantLen:       1,
			wantMalformed: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, malformed := DecodeLog(tt.log)
			if len(events) != tt.wantLen {
				t.Errorf("DecodeLog() len = %d; want %d", len(events), tt.wantLen)
			}
			if malformed != tt.wantMalformed {
				t.Errorf("DecodeLog() malformed = %d; want %d", malformed, tt.wantMalformed)
			}
		})
	}
}

func Test_DecodeLog_legacyStatusMarker(t *testing.T) {
	// legacy records carry the status as a marker substring instead of field 3
	events, malformed := DecodeLog("15/01/2024_9:30am_P_Smith_Math\n16/01/2024_9:30am_x_P_Jones_Math")
	if malformed != 0 {
		t.Fatalf("DecodeLog() malformed = %d; want 0", malformed)
	}
	if len(events) != 2 {
		t.Fatalf("DecodeLog() len = %d; want 2", len(events))
	}
	assert.Equal(t, Present, events[1].Status)

	events, malformed = DecodeLog("16/01/2024_9:30am_x_A_Jones_Math")
	if malformed != 0 {
		t.Fatalf("DecodeLog() malformed = %d; want 0", malformed)
	}
	assert.Equal(t, Absent, events[0].Status)
}

func Test_DecodeLog_noteKeepsExtraSeparators(t *testing.T) {
	// pre-sanitizer records could carry separators inside the note
	events, malformed := DecodeLog("15/01/2024_9:30am_P_Smith_Math_chapter 1_revision_quiz")
	if malformed != 0 {
		t.Fatalf("DecodeLog() malformed = %d; want 0", malformed)
	}
	if want := "chapter 1_revision_quiz"; events[0].Note != want {
		t.Errorf("Note = %q; want %q", events[0].Note, want)
	}
}

func Test_DecodeAll_attachesRosterContext(t *testing.T) {
	logs := []StudentLog{
		{
			StudentID:       "HT001",
			OriginalSection: "CSE-A",
			MergedSection:   "CSE-AB",
			Period:          P1,
			Log:             "15/01/2024_9:30am_P_Smith_Math_Notes",
		},
		{
			StudentID:       "HT002",
			OriginalSection: "CSE-B",
			MergedSection:   "CSE-AB",
			Period:          P1,
			Log:             "15/01/2024_9:30am_A_Smith_Math_Notes\nbad record",
		},
	}

	events, malformed := DecodeAll(logs)
	if malformed != 1 {
		t.Errorf("DecodeAll() malformed = %d; want 1", malformed)
	}
	if len(events) != 2 {
		t.Fatalf("DecodeAll() len = %d; want 2", len(events))
	}
	assert.Equal(t, "HT001", events[0].StudentID)
	assert.Equal(t, "CSE-A", events[0].OriginalSection)
	assert.Equal(t, "CSE-AB", events[0].MergedSection)
	assert.Equal(t, P1, events[0].Period)
	assert.Equal(t, "HT002", events[1].StudentID)
}

func Test_Authoritative(t *testing.T) {
	base := Event{
		StudentID: "HT001",
		Period:    P1,
		Date:      mustDate(t, "15/01/2024"),
		Status:    Absent,
		Faculty:   "Smith",
	}
	correction := base
	correction.Status = Present
	correction.Faculty = "Jones"

	otherDay := base
	otherDay.Date = mustDate(t, "16/01/2024")

	otherPeriod := base
	otherPeriod.Period = P2

	events := Authoritative([]Event{base, otherDay, otherPeriod, correction})
	if len(events) != 3 {
		t.Fatalf("Authoritative() len = %d; want 3", len(events))
	}

	// last event for the contested key wins; uncontested keys keep append order
	assert.Equal(t, otherDay, events[0])
	assert.Equal(t, otherPeriod, events[1])
	assert.Equal(t, correction, events[2])
}
