// Package events publishes domain events after the owning transaction has
// committed. Delivery is best-effort: a failed publish is logged and counted
// but never fails the request that produced it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderCompleted     Type = "order.completed"
	WalletDeposited    Type = "wallet.deposited"
	PrescriptionIssued Type = "prescription.issued"
	MedicineLowStock   Type = "medicine.low_stock"
)

// Event is the envelope written to every broker.
type Event struct {
	ID         uuid.UUID `json:"event_id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`

	// Key routes related events to the same partition.
	Key string `json:"-"`
}

func New(t Type, key string, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
		Key:        key,
	}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type OrderCompletedPayload struct {
	OrderID        string  `json:"order_id"`
	PatientID      string  `json:"patient_id"`
	PrescriptionID string  `json:"prescription_id"`
	MedicineID     string  `json:"medicine_id"`
	Quantity       int     `json:"quantity"`
	TotalAmount    float64 `json:"total_amount"`
	TransactionID  string  `json:"transaction_id"`
}

type WalletDepositedPayload struct {
	UserID        string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	NewBalance    float64 `json:"new_balance"`
	TransactionID string  `json:"transaction_id"`
}

type PrescriptionIssuedPayload struct {
	PrescriptionID    string `json:"prescription_id"`
	DoctorID          string `json:"doctor_id"`
	PatientNationalID string `json:"patient_national_id"`
	MedicineID        string `json:"medicine_id"`
	Quantity          int    `json:"quantity"`
}

type LowStockPayload struct {
	MedicineID string `json:"medicine_id"`
	Name       string `json:"name"`
	Stock      int    `json:"stock"`
	Threshold  int    `json:"threshold"`
}
