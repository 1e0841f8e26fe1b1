package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists the order together with its items.
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// List returns orders with items, newest first.
	List(ctx context.Context, q *ListOrdersQuery) ([]*Order, error)

	Revenue(ctx context.Context) (RevenueSummary, error)
	PatientStats(ctx context.Context, patientID uuid.UUID) (PatientOrderStats, error)
}
