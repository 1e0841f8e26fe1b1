// Package memory holds in-process implementations of the repositories. A
// transaction takes the store's write lock for its whole duration and
// restores a snapshot if the callback fails, which gives the same
// all-or-nothing behaviour as a database transaction.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/google/uuid"
)

type state struct {
	users     map[uuid.UUID]domain.User
	userOrder []uuid.UUID
	audits    []domain.AuditLog

	medicines     map[uuid.UUID]medicine.Medicine
	medicineOrder []uuid.UUID
	alerts        []medicine.Alert

	prescriptions     map[uuid.UUID]prescription.Prescription
	prescriptionOrder []uuid.UUID

	wallets      map[uuid.UUID]wallet.Wallet
	walletByUser map[uuid.UUID]uuid.UUID
	transactions []wallet.Transaction

	orders     map[uuid.UUID]order.Order
	orderOrder []uuid.UUID
}

func newState() *state {
	return &state{
		users:         make(map[uuid.UUID]domain.User),
		medicines:     make(map[uuid.UUID]medicine.Medicine),
		prescriptions: make(map[uuid.UUID]prescription.Prescription),
		wallets:       make(map[uuid.UUID]wallet.Wallet),
		walletByUser:  make(map[uuid.UUID]uuid.UUID),
		orders:        make(map[uuid.UUID]order.Order),
	}
}

// clone copies every collection. Stored values are never mutated in place, so
// a shallow copy of each map and slice is enough.
func (s *state) clone() *state {
	return &state{
		users:             maps.Clone(s.users),
		userOrder:         slices.Clone(s.userOrder),
		audits:            slices.Clone(s.audits),
		medicines:         maps.Clone(s.medicines),
		medicineOrder:     slices.Clone(s.medicineOrder),
		alerts:            slices.Clone(s.alerts),
		prescriptions:     maps.Clone(s.prescriptions),
		prescriptionOrder: slices.Clone(s.prescriptionOrder),
		wallets:           maps.Clone(s.wallets),
		walletByUser:      maps.Clone(s.walletByUser),
		transactions:      slices.Clone(s.transactions),
		orders:            maps.Clone(s.orders),
		orderOrder:        slices.Clone(s.orderOrder),
	}
}

type Store struct {
	mu sync.RWMutex
	s  *state
}

func NewStore() *Store {
	return &Store{s: newState()}
}

type txKey struct{}

func isTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (m *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}

func (m *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}

func (m *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}

func (m *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

type TxManager struct{ store *Store }

func NewTxManager(store *Store) *TxManager { return &TxManager{store: store} }

func (tx *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snapshot := tx.store.s.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		tx.store.s = snapshot
		return err
	}
	return nil
}

// newestFirst resolves ids in reverse insertion order.
func newestFirst[T any](ids []uuid.UUID, byID map[uuid.UUID]T, keep func(T) bool) []*T {
	out := make([]*T, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		v, ok := byID[ids[i]]
		if !ok || (keep != nil && !keep(v)) {
			continue
		}
		out = append(out, &v)
	}
	return out
}
