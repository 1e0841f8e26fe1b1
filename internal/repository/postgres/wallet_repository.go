package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetOrCreate inserts an empty wallet if none exists, then reads it back. The
// ON CONFLICT keeps two first-time requests from failing on the unique user_id.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	db := conn(ctx, r.db)
	seed := wallet.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("ensuring wallet: %w", err)
	}

	var w wallet.Wallet
	if err := forUpdate(ctx, db).Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, fmt.Errorf("querying wallet: %w", err)
	}
	return &w, nil
}

func (r *WalletRepository) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, wallet.ErrInvalidAmount
	}
	db := conn(ctx, r.db)
	res := db.Model(&wallet.Wallet{}).Where("id = ?", walletID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("crediting wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, wallet.ErrWalletNotFound
	}
	return r.balance(db, walletID)
}

// Debit only matches while the balance covers amount, so the balance can
// never go negative even without a prior lock.
func (r *WalletRepository) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, wallet.ErrInvalidAmount
	}
	db := conn(ctx, r.db)
	res := db.Model(&wallet.Wallet{}).Where("id = ? AND balance >= ?", walletID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("debiting wallet: %w", res.Error)
	}

	current, err := r.balance(db, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, &wallet.InsufficientFundsError{Required: amount, Available: current}
	}
	return current, nil
}

func (r *WalletRepository) balance(db *gorm.DB, walletID uuid.UUID) (decimal.Decimal, error) {
	var w wallet.Wallet
	if err := db.Select("balance").Where("id = ?", walletID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, wallet.ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("reading balance: %w", err)
	}
	return w.Balance, nil
}

func (r *WalletRepository) AppendTransaction(ctx context.Context, t *wallet.Transaction) error {
	if err := conn(ctx, r.db).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return wallet.ErrTransactionExists
		}
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]*wallet.Transaction, error) {
	var txs []*wallet.Transaction
	err := conn(ctx, r.db).Where("wallet_id = ?", walletID).
		Order("created_at DESC").Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}
