package patient

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no patient (or dependent) matches.
	ErrNotFound = errors.New("patient not found")
	// ErrConflict is returned when a uniqueness rule is violated, such as a
	// second record for the same user or a duplicate insurance number.
	ErrConflict = errors.New("patient already exists")
	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("patient version conflict")
	// ErrInvalid wraps all validation failures.
	ErrInvalid = errors.New("invalid patient")
)

var (
	nameRe      = regexp.MustCompile(`^[A-Za-z]{2,25}$`)
	insuranceRe = regexp.MustCompile(`^[A-Za-z]{4}[0-9]{8}$`)
	postalRe    = regexp.MustCompile(`^[A-Za-z][0-9][A-Za-z] [0-9][A-Za-z][0-9]$`)
)

// Person carries the identity fields shared by patients and dependents.
// It is embedded rather than inherited from.
type Person struct {
	LastName  string `db:"last_name" json:"last_name"`
	FirstName string `db:"first_name" json:"first_name"`
	Gender    string `db:"gender" json:"gender,omitempty"`
	Email     string `db:"email" json:"email,omitempty"`
}

func (p Person) validate() error {
	if !nameRe.MatchString(p.LastName) {
		return fmt.Errorf("%w: last name must be 2 to 25 letters", ErrInvalid)
	}
	if !nameRe.MatchString(p.FirstName) {
		return fmt.Errorf("%w: first name must be 2 to 25 letters", ErrInvalid)
	}
	return nil
}

// Patient maps to the patient table.
type Patient struct {
	ID uuid.UUID `db:"id" json:"id"`
	Person
	InsuranceNumber string       `db:"insurance_number" json:"insurance_number"`
	PostalCode      string       `db:"postal_code" json:"postal_code"`
	BirthDate       time.Time    `db:"birth_date" json:"birth_date"`
	Age             int          `db:"age" json:"age"`
	UserID          string       `db:"user_id" json:"user_id"`
	VersionID       int          `db:"version_id" json:"version_id"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
	Dependents      []*Dependent `db:"-" json:"dependents"`
}

// GetVersionID returns the current version.
func (p *Patient) GetVersionID() int { return p.VersionID }

// SetVersionID sets the current version.
func (p *Patient) SetVersionID(v int) { p.VersionID = v }

// Validate checks the record against the intake rules. The age field is not
// checked here: it is derived, and Service recomputes it on every write.
func (p *Patient) Validate(now time.Time) error {
	if err := p.Person.validate(); err != nil {
		return err
	}
	if !insuranceRe.MatchString(p.InsuranceNumber) {
		return fmt.Errorf("%w: insurance number must be 4 letters followed by 8 digits", ErrInvalid)
	}
	if !postalRe.MatchString(p.PostalCode) {
		return fmt.Errorf("%w: postal code must match A1A 1A1", ErrInvalid)
	}
	if p.BirthDate.IsZero() {
		return fmt.Errorf("%w: birth date is required", ErrInvalid)
	}
	if p.BirthDate.After(now) {
		return fmt.Errorf("%w: birth date cannot be in the future", ErrInvalid)
	}
	if p.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	return nil
}

// Dependent maps to the dependent table. A dependent is covered by the
// insurance of an owning patient and is removed with it.
type Dependent struct {
	ID uuid.UUID `db:"id" json:"id"`
	Person
	InsuranceNumber string    `db:"insurance_number" json:"insurance_number"`
	BirthDate       time.Time `db:"birth_date" json:"birth_date"`
	Age             int       `db:"age" json:"age"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Validate checks the dependent's intake rules.
func (d *Dependent) Validate(now time.Time) error {
	if err := d.Person.validate(); err != nil {
		return err
	}
	if !insuranceRe.MatchString(d.InsuranceNumber) {
		return fmt.Errorf("%w: insurance number must be 4 letters followed by 8 digits", ErrInvalid)
	}
	if d.BirthDate.IsZero() {
		return fmt.Errorf("%w: birth date is required", ErrInvalid)
	}
	if d.BirthDate.After(now) {
		return fmt.Errorf("%w: birth date cannot be in the future", ErrInvalid)
	}
	return nil
}

// AgeAt computes full years elapsed between birth and ref.
func AgeAt(birth, ref time.Time) int {
	age := ref.Year() - birth.Year()
	anniversary := time.Date(ref.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, ref.Location())
	if ref.Before(anniversary) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
