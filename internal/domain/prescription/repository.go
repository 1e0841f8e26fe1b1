package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)

	// GetActiveForPatient resolves an active prescription by number for the given
	// national ID. Any mismatch yields ErrPrescriptionNotFound. Inside a
	// transaction the row is locked until commit.
	GetActiveForPatient(ctx context.Context, number, nationalID string) (*Prescription, error)

	// TransitionStatus moves id from one status to another and returns
	// ErrInvalidState when the stored status is no longer from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to PrescriptionStatus) error

	List(ctx context.Context, q *ListPrescriptionsQuery) ([]*Prescription, error)
	CountActiveForPatient(ctx context.Context, nationalID string) (int64, error)
}
