package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID string) (*Patient, error)
	GetByInsuranceNumber(ctx context.Context, number string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)

	// Dependents
	AddDependent(ctx context.Context, d *Dependent) error
	GetDependent(ctx context.Context, id uuid.UUID) (*Dependent, error)
	GetDependents(ctx context.Context, patientID uuid.UUID) ([]*Dependent, error)
	RemoveDependent(ctx context.Context, id uuid.UUID) error
	RemoveDependentsByPatient(ctx context.Context, patientID uuid.UUID) error
}
