package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/idgen"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WalletService is the only writer of wallet balances. Every balance change
// is paired with a ledger entry in the same transaction.
type WalletService struct {
	repo         wallet.Repository
	tx           repository.TxManager
	auditSvc     *AuditService
	events       *events.Dispatcher
	metrics      *metrics.Collector
	defaultLimit int
	log          *zap.Logger
}

func NewWalletService(
	repo wallet.Repository,
	tx repository.TxManager,
	auditSvc *AuditService,
	dispatcher *events.Dispatcher,
	m *metrics.Collector,
	defaultLimit int,
	log *zap.Logger,
) *WalletService {
	return &WalletService{
		repo:         repo,
		tx:           tx,
		auditSvc:     auditSvc,
		events:       dispatcher,
		metrics:      m,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

func (s *WalletService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

// Deposit credits w and records a completed deposit. On success w.Balance
// holds the new balance.
func (s *WalletService) Deposit(ctx context.Context, w *wallet.Wallet, e wallet.Entry) (_ *wallet.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "WalletService.Deposit")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("wallet.id", w.ID.String()), attribute.String("amount", e.Amount.StringFixed(2)))

	if err := validateAmount(e.Amount); err != nil {
		return nil, err
	}

	var (
		txn     *wallet.Transaction
		balance decimal.Decimal
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if balance, err = s.repo.Credit(ctx, w.ID, e.Amount); err != nil {
			return err
		}
		txn = newLedgerEntry(w.ID, wallet.TypeDeposit, e)
		return s.repo.AppendTransaction(ctx, txn)
	})
	if err != nil {
		return nil, fmt.Errorf("depositing: %w", err)
	}

	w.Balance = balance
	s.metrics.WalletDeposits.Inc()
	return txn, nil
}

// Withdraw debits w and records a completed withdrawal. It joins the caller's
// transaction when there is one.
func (s *WalletService) Withdraw(ctx context.Context, w *wallet.Wallet, e wallet.Entry) (_ *wallet.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "WalletService.Withdraw")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("wallet.id", w.ID.String()), attribute.String("amount", e.Amount.StringFixed(2)))

	if err := validateAmount(e.Amount); err != nil {
		return nil, err
	}

	var (
		txn     *wallet.Transaction
		balance decimal.Decimal
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if balance, err = s.repo.Debit(ctx, w.ID, e.Amount); err != nil {
			return err
		}
		txn = newLedgerEntry(w.ID, wallet.TypeWithdrawal, e)
		return s.repo.AppendTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	w.Balance = balance
	s.metrics.WalletWithdrawals.Inc()
	return txn, nil
}

// ListTransactions returns at most limit entries, newest first. A limit of
// zero or less uses the configured default.
func (s *WalletService) ListTransactions(ctx context.Context, w *wallet.Wallet, limit int) ([]*wallet.Transaction, error) {
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}
	return s.repo.ListTransactions(ctx, w.ID, limit)
}

// MyWallet returns the caller's wallet, creating it on first access.
func (s *WalletService) MyWallet(ctx context.Context, id *domain.Identity) (*wallet.Wallet, error) {
	if err := requirePatient(id); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, id.UserID)
}

func (s *WalletService) DepositFor(ctx context.Context, id *domain.Identity, amount decimal.Decimal) (*wallet.Wallet, *wallet.Transaction, error) {
	w, err := s.MyWallet(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	txn, err := s.Deposit(ctx, w, wallet.Entry{
		Amount:      amount,
		Description: "Wallet top-up",
	})
	if err != nil {
		if !errors.Is(err, wallet.ErrInvalidAmount) {
			s.log.Error("deposit failed", zap.String("user_id", id.UserID.String()), zap.Error(err))
		}
		return nil, nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionCreate,
		ResourceType: "wallet_transaction",
		ResourceID:   txn.Number,
		Changes:      map[string]any{"type": string(wallet.TypeDeposit), "amount": amount.StringFixed(2)},
	})
	s.events.Dispatch(ctx, events.New(events.WalletDeposited, id.UserID.String(), events.WalletDepositedPayload{
		UserID:        id.UserID.String(),
		Amount:        money.Float(txn.Amount),
		NewBalance:    money.Float(w.Balance),
		TransactionID: txn.Number,
	}))
	return w, txn, nil
}

func (s *WalletService) TransactionsFor(ctx context.Context, id *domain.Identity, limit int) ([]*wallet.Transaction, error) {
	w, err := s.MyWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ListTransactions(ctx, w, limit)
}

// validateAmount accepts positive amounts with at most two fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(money.Round(amount)) {
		return wallet.ErrInvalidAmount
	}
	return nil
}

func newLedgerEntry(walletID uuid.UUID, t wallet.TransactionType, e wallet.Entry) *wallet.Transaction {
	return &wallet.Transaction{
		Number:      idgen.Transaction(),
		WalletID:    walletID,
		Type:        t,
		Amount:      e.Amount,
		Description: e.Description,
		ReferenceID: e.ReferenceID,
		Status:      wallet.StatusCompleted,
		Metadata:    e.Metadata,
	}
}
