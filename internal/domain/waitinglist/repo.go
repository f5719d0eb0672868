package waitinglist

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, w *WaitingList) error
	GetByID(ctx context.Context, id uuid.UUID) (*WaitingList, error)
	Update(ctx context.Context, w *WaitingList) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*WaitingList, int, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*WaitingList, error)

	// Time slots
	AddTimeSlots(ctx context.Context, slots []*TimeSlot) error
	GetTimeSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListTimeSlots(ctx context.Context, waitingListID uuid.UUID) ([]*TimeSlot, error)
	CountTimeSlots(ctx context.Context, waitingListID uuid.UUID) (int, error)
	DeleteTimeSlotsByList(ctx context.Context, waitingListID uuid.UUID) error
}
