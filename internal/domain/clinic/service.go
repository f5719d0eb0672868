package clinic

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinique/clinique/internal/platform/db"
)

// WaitingListPurger removes every waiting list of a clinic, together with the
// lists' slots and consultations. Implemented by the waiting-list service and
// called inside the delete transaction.
type WaitingListPurger interface {
	DeleteByClinic(ctx context.Context, clinicID uuid.UUID) error
}

type Service struct {
	repo  Repository
	lists WaitingListPurger
	tx    func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService builds the clinic service. The pool is only used to open
// transactions for multi-table writes; pass nil to run steps without one.
func NewService(repo Repository, pool *pgxpool.Pool, lists WaitingListPurger) *Service {
	s := &Service{repo: repo, lists: lists}
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

func (s *Service) ListClinics(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) GetClinicByName(ctx context.Context, name string) (*Clinic, error) {
	c, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// CreateClinic validates and stores a new clinic. The creator identity is an
// explicit parameter: the service never reads it from ambient state.
func (s *Service) CreateClinic(ctx context.Context, c *Clinic, createdByUserID string) error {
	c.CreatedByUserID = createdByUserID
	c.Active = true
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetByName(ctx, c.Name); err == nil {
		return ErrConflict
	} else if !db.IsNotFound(err) {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
}

func (s *Service) UpdateClinic(ctx context.Context, c *Clinic) error {
	if err := c.Validate(); err != nil {
		return err
	}
	existing, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	// The creator never changes on update.
	c.CreatedByUserID = existing.CreatedByUserID
	return s.tx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, c)
	})
}

// DeleteClinic removes a clinic and everything hanging off it, in order:
// consultations and time slots via the waiting lists, the lists themselves,
// then the clinic and its address, all in one transaction.
func (s *Service) DeleteClinic(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if s.lists != nil {
			if err := s.lists.DeleteByClinic(ctx, id); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, id)
	})
}
