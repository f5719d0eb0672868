// Package app bundles the domain services behind one value so the server
// entrypoint wires routes against a single dependency.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinique/clinique/internal/domain/clinic"
	"github.com/clinique/clinique/internal/domain/consultation"
	"github.com/clinique/clinique/internal/domain/patient"
	"github.com/clinique/clinique/internal/domain/waitinglist"
)

// Services aggregates the four domain services.
type Services struct {
	Patients      *patient.Service
	Clinics       *clinic.Service
	WaitingLists  *waitinglist.Service
	Consultations *consultation.Service
}

// NewServices builds the full service graph over one connection pool. The
// cross-domain seams (slot lookups, clinic defaults, cascade purges) are
// narrow adapters so no domain package imports another.
func NewServices(pool *pgxpool.Pool) *Services {
	patientRepo := patient.NewRepo(pool)
	clinicRepo := clinic.NewRepo(pool)
	listRepo := waitinglist.NewRepo(pool)
	consultRepo := consultation.NewRepo(pool)

	consultSvc := consultation.NewService(consultRepo, &SlotAdapter{Repo: listRepo})
	listSvc := waitinglist.NewService(listRepo, pool, &ClinicAdapter{Repo: clinicRepo}, consultSvc)
	clinicSvc := clinic.NewService(clinicRepo, pool, listSvc)
	patientSvc := patient.NewService(patientRepo, pool, consultSvc)

	return &Services{
		Patients:      patientSvc,
		Clinics:       clinicSvc,
		WaitingLists:  listSvc,
		Consultations: consultSvc,
	}
}

// SlotAdapter exposes waiting-list time slots to the consultation service.
type SlotAdapter struct {
	Repo waitinglist.Repository
}

func (a *SlotAdapter) Slot(ctx context.Context, id uuid.UUID) (time.Time, time.Time, uuid.UUID, error) {
	s, err := a.Repo.GetTimeSlot(ctx, id)
	if err != nil {
		return time.Time{}, time.Time{}, uuid.Nil, fmt.Errorf("time slot %s: %w", id, err)
	}
	return s.StartAt, s.EndAt, s.WaitingListID, nil
}

// ClinicAdapter exposes clinic defaults to the waiting-list service.
type ClinicAdapter struct {
	Repo clinic.Repository
}

func (a *ClinicAdapter) AverageConsultMinutes(ctx context.Context, clinicID uuid.UUID) (int, error) {
	c, err := a.Repo.GetByID(ctx, clinicID)
	if err != nil {
		return 0, fmt.Errorf("clinic %s: %w", clinicID, err)
	}
	return c.AvgConsultMinutes, nil
}
