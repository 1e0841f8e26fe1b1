package medicine

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)

	// Update persists every catalog field of m.
	Update(ctx context.Context, m *Medicine) error

	// Delete removes the medicine. Returns ErrMedicineInUse while any
	// prescription or order item still references it.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns the catalog, newest first.
	List(ctx context.Context) ([]*Medicine, error)

	// DecrementStock atomically subtracts quantity when at least quantity is on hand
	// and returns the remaining stock. Returns *InsufficientStockError otherwise.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error)

	CreateAlert(ctx context.Context, a *Alert) error
	ListAlerts(ctx context.Context, limit int) ([]*Alert, error)
}
