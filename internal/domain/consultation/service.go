package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinique/clinique/internal/platform/db"
)

// SlotDirectory resolves a time slot to its window and owning waiting list.
// Implemented by the waiting-list service.
type SlotDirectory interface {
	Slot(ctx context.Context, id uuid.UUID) (start, end time.Time, waitingListID uuid.UUID, err error)
}

type Service struct {
	repo  Repository
	slots SlotDirectory
	now   func() time.Time
}

func NewService(repo Repository, slots SlotDirectory) *Service {
	return &Service{
		repo:  repo,
		slots: slots,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListConsultations(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) GetByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

// CreateConsultation books a consultation. A linked patient may hold at most
// one active (non-terminal) consultation, and a linked time slot must be
// unclaimed; the slot's window becomes the planned start and end, and its
// waiting list is recorded. The database's partial unique index is the
// backstop for races on the same slot.
func (s *Service) CreateConsultation(ctx context.Context, c *Consultation) error {
	if c.Status == 0 {
		c.Status = StatusScheduled
	}
	if !ValidStatus(c.Status) {
		return fmt.Errorf("%w: unknown status %d", ErrInvalid, c.Status)
	}

	if c.PatientID != nil {
		previous, err := s.repo.GetByPatient(ctx, *c.PatientID)
		if err != nil {
			return err
		}
		for _, prev := range previous {
			if !IsTerminal(prev.Status) {
				return fmt.Errorf("%w: patient already has an active consultation", ErrConflict)
			}
		}
	}

	if c.TimeSlotID != nil {
		if _, err := s.repo.GetByTimeSlot(ctx, *c.TimeSlotID); err == nil {
			return fmt.Errorf("%w: time slot already claimed", ErrConflict)
		} else if !db.IsNotFound(err) {
			return err
		}
		if s.slots != nil {
			start, end, listID, err := s.slots.Slot(ctx, *c.TimeSlotID)
			if err != nil {
				return fmt.Errorf("%w: time slot lookup: %v", ErrInvalid, err)
			}
			c.PlannedStart = &start
			c.PlannedEnd = &end
			c.WaitingListID = &listID
		}
	}
	return s.repo.Create(ctx, c)
}

// UpdateConsultation stores the full record, enforcing the status transition
// table against the stored status and the optimistic version check.
func (s *Service) UpdateConsultation(ctx context.Context, c *Consultation) error {
	existing, err := s.GetConsultation(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ValidStatus(c.Status) {
		return fmt.Errorf("%w: unknown status %d", ErrInvalid, c.Status)
	}
	if !CanTransition(existing.Status, c.Status) {
		return fmt.Errorf("%w: %s to %s", ErrBadTransition,
			StatusName(existing.Status), StatusName(c.Status))
	}
	s.stampActuals(c)
	return s.repo.Update(ctx, c)
}

// CheckIn moves a scheduled consultation into the waiting room.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.transition(ctx, id, StatusInWaitingRoom)
}

// Start begins the consultation, stamping the actual start.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.transition(ctx, id, StatusInProgress)
}

// Complete finishes the consultation, stamping the actual end.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.transition(ctx, id, StatusCompleted)
}

// Cancel aborts the consultation from any non-terminal status.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to int) (*Consultation, error) {
	c, err := s.GetConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == to {
		return c, nil
	}
	if !CanTransition(c.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrBadTransition,
			StatusName(c.Status), StatusName(to))
	}
	c.Status = to
	s.stampActuals(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) stampActuals(c *Consultation) {
	now := s.now()
	if c.Status == StatusInProgress && c.ActualStart == nil {
		c.ActualStart = &now
	}
	if c.Status == StatusCompleted && c.ActualEnd == nil {
		c.ActualEnd = &now
	}
}

func (s *Service) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetConsultation(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteByPatient removes every consultation of a patient. Runs on the
// caller's transaction: the patient service invokes it mid-cascade.
func (s *Service) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	return s.repo.DeleteByPatient(ctx, patientID)
}

// DeleteByWaitingList removes every consultation booked on a waiting list.
// Runs on the caller's transaction, invoked by the waiting-list cascade.
func (s *Service) DeleteByWaitingList(ctx context.Context, waitingListID uuid.UUID) error {
	return s.repo.DeleteByWaitingList(ctx, waitingListID)
}
