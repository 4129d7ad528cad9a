package attendance

// MarkingState is the duplicate guard's verdict for one
// (merged section, period, submission date) key.
type MarkingState struct {
	Blocked bool   `json:"blocked"`
	Faculty string `json:"faculty,omitempty"` // who marked first
	Date    string `json:"date,omitempty"`    // DD/MM/YYYY
}

// CheckMarking inspects the decoded events of one (merged section, period)
// log set and reports whether any event already exists for the given
// submission date. Once marked, a key stays marked: re-checks always name the
// original faculty. Only same-day re-marking is blocked — events on other
// dates never block, so out-of-band historical corrections remain possible.
//
// Callers must run this twice: once before presenting the marking form and
// again inside the store's critical section immediately before commit, so two
// racing submissions cannot both pass.
func CheckMarking(events []Event, dateKey string) MarkingState {
	for _, e := range events {
		if e.DateKey() == dateKey {
			return MarkingState{Blocked: true, Faculty: e.Faculty, Date: dateKey}
		}
	}
	return MarkingState{}
}
