package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// GetOrCreate returns the user's wallet, creating an empty one on first access.
	// Inside a transaction the wallet row is locked until commit.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// Credit adds amount to the balance and returns the new balance.
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// Debit subtracts amount only while the balance covers it and returns the new
	// balance. Returns *InsufficientFundsError when it does not.
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	AppendTransaction(ctx context.Context, t *Transaction) error

	// ListTransactions returns at most limit entries, newest first.
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]*Transaction, error)
}
