package consultation

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from int
		to   int
		want bool
	}{
		{"scheduled to waiting room", StatusScheduled, StatusInWaitingRoom, true},
		{"scheduled to cancelled", StatusScheduled, StatusCancelled, true},
		{"scheduled skips to in progress", StatusScheduled, StatusInProgress, false},
		{"waiting room to in progress", StatusInWaitingRoom, StatusInProgress, true},
		{"in progress to completed", StatusInProgress, StatusCompleted, true},
		{"in progress to cancelled", StatusInProgress, StatusCancelled, true},
		{"completed is terminal", StatusCompleted, StatusInProgress, false},
		{"completed cannot cancel", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusScheduled, false},
		{"same status allowed", StatusInProgress, StatusInProgress, true},
		{"backwards refused", StatusInProgress, StatusInWaitingRoom, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v",
					StatusName(tt.from), StatusName(tt.to), got, tt.want)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for code := StatusScheduled; code <= StatusCancelled; code++ {
		if !ValidStatus(code) {
			t.Errorf("expected %d to be valid", code)
		}
	}
	for _, code := range []int{0, 6, -1, 99} {
		if ValidStatus(code) {
			t.Errorf("expected %d to be invalid", code)
		}
	}
}

func TestStatusName(t *testing.T) {
	if got := StatusName(StatusInWaitingRoom); got != "in_waiting_room" {
		t.Errorf("got %q", got)
	}
	if got := StatusName(42); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
