package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
}

func (Wallet) TableName() string {
	return "ledger.wallets"
}

type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeRefund     TransactionType = "refund"
	TypePayment    TransactionType = "payment"
)

// IsCredit reports whether the type increases a wallet balance.
func (t TransactionType) IsCredit() bool {
	return t == TypeDeposit || t == TypeRefund
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction is an append-only ledger entry. Amount is always positive; the
// direction is carried by Type.
type Transaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	// Number is TXN- followed by 10 uppercase hex chars.
	Number      string            `gorm:"column:number;type:varchar(20);uniqueIndex;not null"`
	WalletID    uuid.UUID         `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type        TransactionType   `gorm:"column:type;type:varchar(20);not null"`
	Amount      decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Description string            `gorm:"column:description;type:text"`
	ReferenceID string            `gorm:"column:reference_id;type:varchar(100);index"`
	Status      TransactionStatus `gorm:"column:status;type:varchar(20);not null"`
	Metadata    map[string]any    `gorm:"column:metadata;type:jsonb;serializer:json"`
}

func (Transaction) TableName() string {
	return "ledger.transactions"
}

// SignedAmount is the effect of t on its wallet balance. Only completed
// transactions move money.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Status != StatusCompleted {
		return decimal.Zero
	}
	if t.Type.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Entry describes a ledger movement requested by a caller.
type Entry struct {
	Amount      decimal.Decimal
	Description string
	ReferenceID string
	Metadata    map[string]any
}
