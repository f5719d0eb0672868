package clinic

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("clinic not found")
	// ErrConflict is returned when a clinic name is already taken.
	ErrConflict = errors.New("clinic already exists")
	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("clinic version conflict")
	// ErrInvalid wraps all validation failures.
	ErrInvalid = errors.New("invalid clinic")
)

var postalRe = regexp.MustCompile(`^[A-Za-z][0-9][A-Za-z] [0-9][A-Za-z][0-9]$`)

// Address maps to the address table. A clinic owns exactly one address and
// takes it along when deleted.
type Address struct {
	ID           uuid.UUID `db:"id" json:"id"`
	StreetNumber string    `db:"street_number" json:"street_number"`
	Street       string    `db:"street" json:"street"`
	City         string    `db:"city" json:"city"`
	Province     string    `db:"province" json:"province"`
	Country      string    `db:"country" json:"country"`
	PostalCode   string    `db:"postal_code" json:"postal_code"`
}

func (a *Address) validate() error {
	if a.Street == "" || a.City == "" {
		return fmt.Errorf("%w: street and city are required", ErrInvalid)
	}
	if !postalRe.MatchString(a.PostalCode) {
		return fmt.Errorf("%w: postal code must match A1A 1A1", ErrInvalid)
	}
	return nil
}

// Clinic maps to the clinic table. Times of day are "HH:MM" strings; the
// effective schedule lives on the waiting lists.
type Clinic struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Email               string    `db:"email" json:"email,omitempty"`
	Phone               string    `db:"phone" json:"phone,omitempty"`
	OpeningTime         string    `db:"opening_time" json:"opening_time"`
	ClosingTime         string    `db:"closing_time" json:"closing_time"`
	AvgConsultMinutes   int       `db:"avg_consult_minutes" json:"avg_consult_minutes"`
	Active              bool      `db:"active" json:"active"`
	Address             Address   `db:"-" json:"address"`
	CreatedByUserID     string    `db:"created_by_user_id" json:"created_by_user_id"`
	VersionID           int       `db:"version_id" json:"version_id"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (c *Clinic) GetVersionID() int { return c.VersionID }

// SetVersionID sets the current version.
func (c *Clinic) SetVersionID(v int) { c.VersionID = v }

// Validate checks the record against the registration rules.
func (c *Clinic) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	open, err := ParseTimeOfDay(c.OpeningTime)
	if err != nil {
		return fmt.Errorf("%w: opening time: %v", ErrInvalid, err)
	}
	close, err := ParseTimeOfDay(c.ClosingTime)
	if err != nil {
		return fmt.Errorf("%w: closing time: %v", ErrInvalid, err)
	}
	if !open.Before(close) {
		return fmt.Errorf("%w: opening time must precede closing time", ErrInvalid)
	}
	if c.AvgConsultMinutes <= 0 {
		return fmt.Errorf("%w: average consultation duration must be positive", ErrInvalid)
	}
	return c.Address.validate()
}

// ParseTimeOfDay parses an "HH:MM" string into a time on the zero date,
// suitable for comparisons.
func ParseTimeOfDay(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want HH:MM, got %q", s)
	}
	return t, nil
}
