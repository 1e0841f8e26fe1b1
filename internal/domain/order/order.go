package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusFailed     OrderStatus = "failed"
)

// OpenStatuses are the statuses of orders still awaiting completion.
var OpenStatuses = []OrderStatus{StatusPending, StatusProcessing}

func (s OrderStatus) IsOpen() bool {
	return s == StatusPending || s == StatusProcessing
}

// Order is immutable once created. TotalAmount is locked to the sum of its
// item line totals at creation time.
type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// Number is ORD- followed by 8 uppercase hex chars.
	Number    string    `gorm:"column:number;type:varchar(20);uniqueIndex;not null"`
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	// PrescriptionID is nulled if the prescription is ever removed.
	PrescriptionID *uuid.UUID `gorm:"column:prescription_id;type:uuid;index"`

	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      OrderStatus     `gorm:"column:status;type:varchar(20);not null;default:'completed';index"`

	Items []Item `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string {
	return "pharmacy.orders"
}

type Item struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	MedicineID  uuid.UUID       `gorm:"column:medicine_id;type:uuid;not null;index"`
	Quantity    int             `gorm:"column:quantity;not null"`
	PriceAtTime decimal.Decimal `gorm:"column:price_at_time;type:numeric(10,2);not null"`
}

func (Item) TableName() string {
	return "pharmacy.order_items"
}

func (i Item) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// New builds a completed order whose total is the sum of its line totals.
func New(number string, patientID uuid.UUID, prescriptionID *uuid.UUID, items []Item) *Order {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return &Order{
		Number:         number,
		PatientID:      patientID,
		PrescriptionID: prescriptionID,
		TotalAmount:    total.Round(2),
		Status:         StatusCompleted,
		Items:          items,
	}
}

type ListOrdersQuery struct {
	PatientID *uuid.UUID
}

type RevenueSummary struct {
	TotalRevenue decimal.Decimal
	OrdersCount  int64
}

func (r RevenueSummary) AverageOrderValue() decimal.Decimal {
	if r.OrdersCount == 0 {
		return decimal.Zero
	}
	return r.TotalRevenue.Div(decimal.NewFromInt(r.OrdersCount)).Round(2)
}

type PatientOrderStats struct {
	TotalOrders   int64
	PendingOrders int64
	TotalSpent    decimal.Decimal
}
