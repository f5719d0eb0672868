package consultation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("consultation not found")
	// ErrConflict is returned when a slot or patient is already booked.
	ErrConflict = errors.New("consultation conflict")
	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("consultation version conflict")
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("invalid consultation")
	// ErrBadTransition is returned when a status change is not in the
	// transition table.
	ErrBadTransition = errors.New("status transition not allowed")
)

// Consultation status codes.
const (
	StatusScheduled     = 1
	StatusInWaitingRoom = 2
	StatusInProgress    = 3
	StatusCompleted     = 4
	StatusCancelled     = 5
)

// transitions declares the allowed status changes. Completed and Cancelled
// are terminal. Same-status writes are always accepted.
var transitions = map[int][]int{
	StatusScheduled:     {StatusInWaitingRoom, StatusCancelled},
	StatusInWaitingRoom: {StatusInProgress, StatusCancelled},
	StatusInProgress:    {StatusCompleted, StatusCancelled},
	StatusCompleted:     {},
	StatusCancelled:     {},
}

var statusNames = map[int]string{
	StatusScheduled:     "scheduled",
	StatusInWaitingRoom: "in_waiting_room",
	StatusInProgress:    "in_progress",
	StatusCompleted:     "completed",
	StatusCancelled:     "cancelled",
}

// ValidStatus reports whether code is a known status.
func ValidStatus(code int) bool {
	_, ok := statusNames[code]
	return ok
}

// StatusName returns a readable name for a status code.
func StatusName(code int) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(code int) bool {
	return code == StatusCompleted || code == StatusCancelled
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to int) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Consultation maps to the consultation table. A consultation may claim at
// most one time slot, and a slot carries at most one consultation.
type Consultation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	TimeSlotID    *uuid.UUID `db:"time_slot_id" json:"time_slot_id,omitempty"`
	WaitingListID *uuid.UUID `db:"waiting_list_id" json:"waiting_list_id,omitempty"`
	PlannedStart  *time.Time `db:"planned_start" json:"planned_start,omitempty"`
	PlannedEnd    *time.Time `db:"planned_end" json:"planned_end,omitempty"`
	ActualStart   *time.Time `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd     *time.Time `db:"actual_end" json:"actual_end,omitempty"`
	Status        int        `db:"status" json:"status"`
	VersionID     int        `db:"version_id" json:"version_id"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (c *Consultation) GetVersionID() int { return c.VersionID }

// SetVersionID sets the current version.
func (c *Consultation) SetVersionID(v int) { c.VersionID = v }
