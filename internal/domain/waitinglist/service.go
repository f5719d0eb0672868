package waitinglist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinique/clinique/internal/platform/db"
)

// ClinicDirectory supplies the clinic's default consultation duration, used
// when a list carries no override. Implemented by the clinic service.
type ClinicDirectory interface {
	AverageConsultMinutes(ctx context.Context, clinicID uuid.UUID) (int, error)
}

// ConsultationPurger removes the consultations booked on a waiting list.
// Called inside delete cascades, before the slots they point at go away.
type ConsultationPurger interface {
	DeleteByWaitingList(ctx context.Context, waitingListID uuid.UUID) error
}

type Service struct {
	repo     Repository
	clinics  ClinicDirectory
	consults ConsultationPurger
	tx       func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService builds the waiting-list service. The pool is only used to open
// transactions for multi-table writes; pass nil to run steps without one.
func NewService(repo Repository, pool *pgxpool.Pool, clinics ClinicDirectory, consults ConsultationPurger) *Service {
	s := &Service{repo: repo, clinics: clinics, consults: consults}
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

func (s *Service) ListWaitingLists(ctx context.Context, limit, offset int) ([]*WaitingList, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) GetWaitingList(ctx context.Context, id uuid.UUID) (*WaitingList, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (s *Service) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*WaitingList, error) {
	return s.repo.ListByClinic(ctx, clinicID)
}

func (s *Service) CreateWaitingList(ctx context.Context, w *WaitingList) error {
	if err := w.Validate(); err != nil {
		return err
	}
	// Lists are born closed; Open is an explicit transition.
	w.IsOpen = false
	return s.repo.Create(ctx, w)
}

// UpdateWaitingList validates and stores the full record. Setting the open
// flag through here passes the same guard as the Open transition.
func (s *Service) UpdateWaitingList(ctx context.Context, w *WaitingList) error {
	if err := w.Validate(); err != nil {
		return err
	}
	existing, err := s.repo.GetByID(ctx, w.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if w.IsOpen && !existing.IsOpen && !w.CanOpen() {
		return ErrCannotOpen
	}
	w.ClinicID = existing.ClinicID
	return s.repo.Update(ctx, w)
}

// Open marks the list as accepting patients, provided the guard holds.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*WaitingList, error) {
	w, err := s.GetWaitingList(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.IsOpen {
		return w, nil
	}
	if !w.CanOpen() {
		return nil, fmt.Errorf("%w: needs at least one practitioner and a non-empty window", ErrCannotOpen)
	}
	w.IsOpen = true
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Close marks the list as closed. Always allowed.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (*WaitingList, error) {
	w, err := s.GetWaitingList(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.IsOpen {
		return w, nil
	}
	w.IsOpen = false
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// GenerateTimeSlots divides the list's open window on the effective date into
// consecutive fixed-duration slots. The duration is the list override when
// set, the clinic average otherwise. Generation is refused when the list
// already has slots.
func (s *Service) GenerateTimeSlots(ctx context.Context, id uuid.UUID) ([]*TimeSlot, error) {
	w, err := s.GetWaitingList(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.CountTimeSlots(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: time slots already generated", ErrConflict)
	}

	minutes := 0
	if w.SlotDurationMinutes != nil {
		minutes = *w.SlotDurationMinutes
	} else if s.clinics != nil {
		minutes, err = s.clinics.AverageConsultMinutes(ctx, w.ClinicID)
		if err != nil {
			return nil, err
		}
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: no usable slot duration", ErrInvalid)
	}

	start, end, err := w.Window()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	duration := time.Duration(minutes) * time.Minute
	slots := []*TimeSlot{}
	for cur := start; !cur.Add(duration).After(end); cur = cur.Add(duration) {
		slots = append(slots, &TimeSlot{
			WaitingListID: w.ID,
			StartAt:       cur,
			EndAt:         cur.Add(duration),
		})
	}

	if err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.AddTimeSlots(ctx, slots)
	}); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *Service) ListTimeSlots(ctx context.Context, id uuid.UUID) ([]*TimeSlot, error) {
	if _, err := s.GetWaitingList(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListTimeSlots(ctx, id)
}

// DeleteWaitingList removes a list in order: its consultations, its slots,
// then the list row, all in one transaction.
func (s *Service) DeleteWaitingList(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetWaitingList(ctx, id); err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		return s.deleteListSteps(ctx, id)
	})
}

// DeleteByClinic removes every list of a clinic. Runs on the caller's
// transaction: the clinic service invokes it mid-cascade.
func (s *Service) DeleteByClinic(ctx context.Context, clinicID uuid.UUID) error {
	lists, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return err
	}
	for _, w := range lists {
		if err := s.deleteListSteps(ctx, w.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deleteListSteps(ctx context.Context, id uuid.UUID) error {
	if s.consults != nil {
		if err := s.consults.DeleteByWaitingList(ctx, id); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteTimeSlotsByList(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
