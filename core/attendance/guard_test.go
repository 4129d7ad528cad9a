package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CheckMarking(t *testing.T) {
	events := []Event{
		{
			StudentID: "HT001",
			Period:    P1,
			Date:      mustDate(t, "15/01/2024"),
			Status:    Present,
			Faculty:   "Dr. Smith",
		},
		{
			StudentID: "HT002",
			Period:    P1,
			Date:      mustDate(t, "15/01/2024"),
			Status:    Absent,
			Faculty:   "Dr. Smith",
		},
	}

	t.Run("same-day re-marking is blocked", func(t *testing.T) {
		state := CheckMarking(events, "15/01/2024")
		assert.True(t, state.Blocked)
		assert.Equal(t, "Dr. Smith", state.Faculty)
		assert.Equal(t, "15/01/2024", state.Date)
	})

	t.Run("other dates are free", func(t *testing.T) {
		state := CheckMarking(events, "16/01/2024")
		assert.False(t, state.Blocked)
	})

	t.Run("empty log is free", func(t *testing.T) {
		state := CheckMarking(nil, "15/01/2024")
		assert.False(t, state.Blocked)
	})

	t.Run("re-checks keep naming the original faculty", func(t *testing.T) {
		// a correction by someone else does not transfer ownership of the block
		later := append(events, Event{
			StudentID: "HT001",
			Period:    P1,
			Date:      mustDate(t, "15/01/2024"),
			Status:    Absent,
			Faculty:   "Prof. Jones",
		})
		state := CheckMarking(later, "15/01/2024")
		assert.True(t, state.Blocked)
		assert.Equal(t, "Dr. Smith", state.Faculty)
	})
}
