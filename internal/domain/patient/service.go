package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinique/clinique/internal/platform/db"
)

// ConsultationPurger removes the consultations owned by a patient. It is
// implemented by the consultation service and called inside the delete
// transaction, keeping the cascade explicit and ordered.
type ConsultationPurger interface {
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	repo     Repository
	consults ConsultationPurger
	tx       func(ctx context.Context, fn func(ctx context.Context) error) error
	now      func() time.Time
}

// NewService builds the patient service. The pool is only used to open
// transactions for multi-table deletes; pass nil to run steps without one.
func NewService(repo Repository, pool *pgxpool.Pool, consults ConsultationPurger) *Service {
	s := &Service{
		repo:     repo,
		consults: consults,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if pool != nil {
		s.tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	} else {
		s.tx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	return s
}

// ListPatients returns a page of patients with their dependents attached.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	patients, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range patients {
		deps, err := s.repo.GetDependents(ctx, p.ID)
		if err != nil {
			return nil, 0, err
		}
		p.Dependents = deps
	}
	return patients, total, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Dependents, err = s.repo.GetDependents(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPatientByUser returns the record owned by the given user identity.
func (s *Service) GetPatientByUser(ctx context.Context, userID string) (*Patient, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Dependents, err = s.repo.GetDependents(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateOrUpdatePatient validates the record, recomputes the age from the
// birth date, and inserts when the id is zero or overwrites the stored record
// otherwise. On insert it enforces one record per user and a unique insurance
// number.
func (s *Service) CreateOrUpdatePatient(ctx context.Context, p *Patient) error {
	now := s.now()

	if p.ID != uuid.Nil {
		existing, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		// The owning user never changes on update; the stored value also
		// stands in for a body that omits it.
		p.UserID = existing.UserID
	}

	if err := p.Validate(now); err != nil {
		return err
	}
	p.Age = AgeAt(p.BirthDate, now)

	if p.ID != uuid.Nil {
		return s.repo.Update(ctx, p)
	}

	if already, err := s.IsUserAlreadyPatient(ctx, p.UserID); err != nil {
		return err
	} else if already {
		return ErrConflict
	}
	if exists, err := s.ExistsByInsuranceNumber(ctx, p.InsuranceNumber); err != nil {
		return err
	} else if exists {
		return ErrConflict
	}
	return s.repo.Create(ctx, p)
}

// DeletePatient removes a patient and everything hanging off it, in order:
// consultations, dependents, then the patient row, all in one transaction.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if s.consults != nil {
			if err := s.consults.DeleteByPatient(ctx, id); err != nil {
				return err
			}
		}
		if err := s.repo.RemoveDependentsByPatient(ctx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
}

// ExistsByInsuranceNumber reports whether any patient carries the number.
func (s *Service) ExistsByInsuranceNumber(ctx context.Context, number string) (bool, error) {
	_, err := s.repo.GetByInsuranceNumber(ctx, number)
	if err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsUserAlreadyPatient reports whether the user already owns a record.
func (s *Service) IsUserAlreadyPatient(ctx context.Context, userID string) (bool, error) {
	_, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddDependent attaches a dependent to an existing patient.
func (s *Service) AddDependent(ctx context.Context, d *Dependent) error {
	now := s.now()
	if err := d.Validate(now); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, d.PatientID); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	d.Age = AgeAt(d.BirthDate, now)
	return s.repo.AddDependent(ctx, d)
}

func (s *Service) GetDependents(ctx context.Context, patientID uuid.UUID) ([]*Dependent, error) {
	return s.repo.GetDependents(ctx, patientID)
}

// RemoveDependent detaches a dependent, refusing ids that belong to another
// patient.
func (s *Service) RemoveDependent(ctx context.Context, patientID, dependentID uuid.UUID) error {
	d, err := s.repo.GetDependent(ctx, dependentID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if d.PatientID != patientID {
		return ErrNotFound
	}
	return s.repo.RemoveDependent(ctx, dependentID)
}
