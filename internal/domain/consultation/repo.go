package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetByTimeSlot(ctx context.Context, timeSlotID uuid.UUID) (*Consultation, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consultation, error)
	Update(ctx context.Context, c *Consultation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Consultation, int, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
	DeleteByWaitingList(ctx context.Context, waitingListID uuid.UUID) error
}
