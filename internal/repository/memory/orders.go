package memory

import (
	"context"
	"slices"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderRepository struct{ store *Store }

func NewOrderRepository(store *Store) *OrderRepository { return &OrderRepository{store: store} }

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = slices.Clone(o.Items)
	r.store.s.orders[o.ID] = stored
	r.store.s.orderOrder = append(r.store.s.orderOrder, o.ID)
	return nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, o := range r.store.s.orders {
		if o.Number == number {
			o.Items = slices.Clone(o.Items)
			return &o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *OrderRepository) List(ctx context.Context, q *order.ListOrdersQuery) ([]*order.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return newestFirst(r.store.s.orderOrder, r.store.s.orders, func(o order.Order) bool {
		return q.PatientID == nil || o.PatientID == *q.PatientID
	}), nil
}

func (r *OrderRepository) Revenue(ctx context.Context) (order.RevenueSummary, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	sum := order.RevenueSummary{TotalRevenue: decimal.Zero}
	for _, o := range r.store.s.orders {
		if o.Status == order.StatusCompleted {
			sum.TotalRevenue = sum.TotalRevenue.Add(o.TotalAmount)
			sum.OrdersCount++
		}
	}
	return sum, nil
}

func (r *OrderRepository) PatientStats(ctx context.Context, patientID uuid.UUID) (order.PatientOrderStats, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	stats := order.PatientOrderStats{TotalSpent: decimal.Zero}
	for _, o := range r.store.s.orders {
		if o.PatientID != patientID {
			continue
		}
		stats.TotalOrders++
		switch {
		case o.Status.IsOpen():
			stats.PendingOrders++
		case o.Status == order.StatusCompleted:
			stats.TotalSpent = stats.TotalSpent.Add(o.TotalAmount)
		}
	}
	return stats, nil
}
