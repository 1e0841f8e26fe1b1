package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if err := conn(ctx, r.db).Create(o).Error; err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	var o order.Order
	err := conn(ctx, r.db).Preload("Items").Where("number = ?", number).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, q *order.ListOrdersQuery) ([]*order.Order, error) {
	db := conn(ctx, r.db).Preload("Items")
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}

	var orders []*order.Order
	if err := db.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) Revenue(ctx context.Context) (order.RevenueSummary, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := conn(ctx, r.db).Model(&order.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS count").
		Where("status = ?", order.StatusCompleted).
		Scan(&row).Error
	if err != nil {
		return order.RevenueSummary{}, fmt.Errorf("summing revenue: %w", err)
	}
	return order.RevenueSummary{TotalRevenue: row.Total, OrdersCount: row.Count}, nil
}

func (r *OrderRepository) PatientStats(ctx context.Context, patientID uuid.UUID) (order.PatientOrderStats, error) {
	var row struct {
		Total   int64
		Pending int64
		Spent   decimal.Decimal
	}
	err := conn(ctx, r.db).Model(&order.Order{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status IN ?) AS pending,
			COALESCE(SUM(total_amount) FILTER (WHERE status = ?), 0) AS spent`,
			order.OpenStatuses, order.StatusCompleted).
		Where("patient_id = ?", patientID).
		Scan(&row).Error
	if err != nil {
		return order.PatientOrderStats{}, fmt.Errorf("computing patient stats: %w", err)
	}
	return order.PatientOrderStats{TotalOrders: row.Total, PendingOrders: row.Pending, TotalSpent: row.Spent}, nil
}
