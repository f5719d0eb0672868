package waitinglist

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("waiting list not found")
	// ErrConflict is returned when slots already exist for a list being
	// generated, or a uniqueness rule is violated.
	ErrConflict = errors.New("waiting list conflict")
	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("waiting list version conflict")
	// ErrInvalid wraps all validation failures.
	ErrInvalid = errors.New("invalid waiting list")
	// ErrCannotOpen is returned when the open guard refuses the transition.
	ErrCannotOpen = errors.New("waiting list cannot be opened")
)

// WaitingList maps to the waiting_list table. One list covers one clinic day:
// the open window on the effective date is divided into time slots.
type WaitingList struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	ClinicID               uuid.UUID `db:"clinic_id" json:"clinic_id"`
	EffectiveDate          time.Time `db:"effective_date" json:"effective_date"`
	IsOpen                 bool      `db:"is_open" json:"is_open"`
	OpeningTime            string    `db:"opening_time" json:"opening_time"`
	ClosingTime            string    `db:"closing_time" json:"closing_time"`
	AvailablePractitioners int       `db:"available_practitioners" json:"available_practitioners"`
	SlotDurationMinutes    *int      `db:"slot_duration_minutes" json:"slot_duration_minutes,omitempty"`
	VersionID              int       `db:"version_id" json:"version_id"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (w *WaitingList) GetVersionID() int { return w.VersionID }

// SetVersionID sets the current version.
func (w *WaitingList) SetVersionID(v int) { w.VersionID = v }

// Validate checks the schedule fields.
func (w *WaitingList) Validate() error {
	if w.ClinicID == uuid.Nil {
		return fmt.Errorf("%w: clinic id is required", ErrInvalid)
	}
	if w.EffectiveDate.IsZero() {
		return fmt.Errorf("%w: effective date is required", ErrInvalid)
	}
	open, err := parseTimeOfDay(w.OpeningTime)
	if err != nil {
		return fmt.Errorf("%w: opening time: %v", ErrInvalid, err)
	}
	closing, err := parseTimeOfDay(w.ClosingTime)
	if err != nil {
		return fmt.Errorf("%w: closing time: %v", ErrInvalid, err)
	}
	if !open.Before(closing) {
		return fmt.Errorf("%w: opening time must precede closing time", ErrInvalid)
	}
	if w.AvailablePractitioners < 0 {
		return fmt.Errorf("%w: available practitioners cannot be negative", ErrInvalid)
	}
	if w.SlotDurationMinutes != nil && *w.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot duration override must be positive", ErrInvalid)
	}
	return nil
}

// CanOpen reports whether the open guard admits the list: at least one
// practitioner and a non-empty open window.
func (w *WaitingList) CanOpen() bool {
	if w.AvailablePractitioners <= 0 {
		return false
	}
	open, err := parseTimeOfDay(w.OpeningTime)
	if err != nil {
		return false
	}
	closing, err := parseTimeOfDay(w.ClosingTime)
	if err != nil {
		return false
	}
	return open.Before(closing)
}

// Window returns the concrete start and end of the open window on the
// effective date.
func (w *WaitingList) Window() (start, end time.Time, err error) {
	open, err := parseTimeOfDay(w.OpeningTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	closing, err := parseTimeOfDay(w.ClosingTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d := w.EffectiveDate
	start = time.Date(d.Year(), d.Month(), d.Day(), open.Hour(), open.Minute(), 0, 0, time.UTC)
	end = time.Date(d.Year(), d.Month(), d.Day(), closing.Hour(), closing.Minute(), 0, 0, time.UTC)
	return start, end, nil
}

// TimeSlot maps to the time_slot table.
type TimeSlot struct {
	ID            uuid.UUID `db:"id" json:"id"`
	WaitingListID uuid.UUID `db:"waiting_list_id" json:"waiting_list_id"`
	StartAt       time.Time `db:"start_at" json:"start_at"`
	EndAt         time.Time `db:"end_at" json:"end_at"`
}

func parseTimeOfDay(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want HH:MM, got %q", s)
	}
	return t, nil
}
