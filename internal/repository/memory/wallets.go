package memory

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletRepository struct{ store *Store }

func NewWalletRepository(store *Store) *WalletRepository { return &WalletRepository{store: store} }

func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	s := r.store.s
	if id, ok := s.walletByUser[userID]; ok {
		w := s.wallets[id]
		return &w, nil
	}
	now := time.Now().UTC()
	w := wallet.Wallet{ID: uuid.New(), CreatedAt: now, UpdatedAt: now, UserID: userID, Balance: decimal.Zero}
	s.wallets[w.ID] = w
	s.walletByUser[userID] = w.ID
	return &w, nil
}

func (r *WalletRepository) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, wallet.ErrInvalidAmount
	}
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	w, ok := r.store.s.wallets[walletID]
	if !ok {
		return decimal.Zero, wallet.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = time.Now().UTC()
	r.store.s.wallets[walletID] = w
	return w.Balance, nil
}

func (r *WalletRepository) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, wallet.ErrInvalidAmount
	}
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	w, ok := r.store.s.wallets[walletID]
	if !ok {
		return decimal.Zero, wallet.ErrWalletNotFound
	}
	if w.Balance.LessThan(amount) {
		return decimal.Zero, &wallet.InsufficientFundsError{Required: amount, Available: w.Balance}
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = time.Now().UTC()
	r.store.s.wallets[walletID] = w
	return w.Balance, nil
}

func (r *WalletRepository) AppendTransaction(ctx context.Context, t *wallet.Transaction) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	for _, existing := range r.store.s.transactions {
		if existing.Number == t.Number {
			return wallet.ErrTransactionExists
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	r.store.s.transactions = append(r.store.s.transactions, *t)
	return nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]*wallet.Transaction, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	txs := r.store.s.transactions
	out := make([]*wallet.Transaction, 0)
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		if txs[i].WalletID == walletID {
			t := txs[i]
			out = append(out, &t)
		}
	}
	return out, nil
}
