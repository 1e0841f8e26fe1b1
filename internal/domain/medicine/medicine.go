package medicine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Medicine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name         string          `gorm:"column:name;type:varchar(100);not null;index"`
	Category     string          `gorm:"column:category;type:varchar(100)"`
	Manufacturer string          `gorm:"column:manufacturer;type:varchar(100)"`
	BatchNumber  string          `gorm:"column:batch_number;type:varchar(100)"`
	ExpiryDate   *time.Time      `gorm:"column:expiry_date;type:date"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null;default:0"`
	Stock        int             `gorm:"column:stock;not null;default:0"`
	Notes        string          `gorm:"column:notes;type:text"`
}

func (Medicine) TableName() string {
	return "pharmacy.medicines"
}

// CanSupply reports whether quantity units are on hand.
func (m *Medicine) CanSupply(quantity int) bool {
	return m.Stock >= quantity
}

// Validate checks the catalog invariants: a name, non-negative price and stock.
func (m *Medicine) Validate() []string {
	var errs []string
	if m.Name == "" {
		errs = append(errs, "name is required")
	}
	if m.Price.IsNegative() {
		errs = append(errs, "price must not be negative")
	}
	if m.Stock < 0 {
		errs = append(errs, "stock must not be negative")
	}
	return errs
}

type AlertType string

const (
	AlertLowStock AlertType = "low_stock"
	AlertExpiry   AlertType = "expiry"
)

type Alert struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
	MedicineID uuid.UUID `gorm:"column:medicine_id;type:uuid;not null;index"`
	Type       AlertType `gorm:"column:type;type:varchar(20);not null"`
	Message    string    `gorm:"column:message;type:varchar(255);not null"`
}

func (Alert) TableName() string {
	return "pharmacy.alerts"
}

type CreateMedicineCommand struct {
	Name         string
	Category     string
	Manufacturer string
	BatchNumber  string
	ExpiryDate   *time.Time
	Price        decimal.Decimal
	Stock        int
	Notes        string
}

// UpdateMedicineCommand is a partial patch: nil fields keep their stored value.
type UpdateMedicineCommand struct {
	Name         *string
	Category     *string
	Manufacturer *string
	BatchNumber  *string
	ExpiryDate   *time.Time
	Price        *decimal.Decimal
	Stock        *int
	Notes        *string
}

// Apply copies the present fields of cmd onto m.
func (cmd *UpdateMedicineCommand) Apply(m *Medicine) {
	if cmd.Name != nil {
		m.Name = *cmd.Name
	}
	if cmd.Category != nil {
		m.Category = *cmd.Category
	}
	if cmd.Manufacturer != nil {
		m.Manufacturer = *cmd.Manufacturer
	}
	if cmd.BatchNumber != nil {
		m.BatchNumber = *cmd.BatchNumber
	}
	if cmd.ExpiryDate != nil {
		m.ExpiryDate = cmd.ExpiryDate
	}
	if cmd.Price != nil {
		m.Price = *cmd.Price
	}
	if cmd.Stock != nil {
		m.Stock = *cmd.Stock
	}
	if cmd.Notes != nil {
		m.Notes = *cmd.Notes
	}
}

// Changes lists the fields cmd sets, for audit records.
func (cmd *UpdateMedicineCommand) Changes() map[string]any {
	out := make(map[string]any)
	if cmd.Name != nil {
		out["name"] = *cmd.Name
	}
	if cmd.Category != nil {
		out["category"] = *cmd.Category
	}
	if cmd.Manufacturer != nil {
		out["manufacturer"] = *cmd.Manufacturer
	}
	if cmd.BatchNumber != nil {
		out["batch_number"] = *cmd.BatchNumber
	}
	if cmd.ExpiryDate != nil {
		out["expiry_date"] = cmd.ExpiryDate.Format(time.DateOnly)
	}
	if cmd.Price != nil {
		out["price"] = cmd.Price.StringFixed(2)
	}
	if cmd.Stock != nil {
		out["stock"] = *cmd.Stock
	}
	if cmd.Notes != nil {
		out["notes"] = *cmd.Notes
	}
	return out
}
