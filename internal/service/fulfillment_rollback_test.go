package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStorage = errors.New("storage unavailable")

// hookedPrescriptions runs afterGet once the active prescription has been read
// and fails TransitionStatus with transitionErr when set.
type hookedPrescriptions struct {
	*memory.PrescriptionRepository
	afterGet      func(ctx context.Context, p *prescription.Prescription)
	transitionErr error
}

func (r *hookedPrescriptions) GetActiveForPatient(ctx context.Context, number, nationalID string) (*prescription.Prescription, error) {
	p, err := r.PrescriptionRepository.GetActiveForPatient(ctx, number, nationalID)
	if err == nil && r.afterGet != nil {
		r.afterGet(ctx, p)
	}
	return p, err
}

func (r *hookedPrescriptions) TransitionStatus(ctx context.Context, id uuid.UUID, from, to prescription.PrescriptionStatus) error {
	if r.transitionErr != nil {
		return r.transitionErr
	}
	return r.PrescriptionRepository.TransitionStatus(ctx, id, from, to)
}

type hookedMedicines struct {
	*memory.MedicineRepository
	afterGet     func(ctx context.Context, m *medicine.Medicine)
	decrementErr error
}

func (r *hookedMedicines) GetByID(ctx context.Context, id uuid.UUID) (*medicine.Medicine, error) {
	m, err := r.MedicineRepository.GetByID(ctx, id)
	if err == nil && r.afterGet != nil {
		r.afterGet(ctx, m)
	}
	return m, err
}

func (r *hookedMedicines) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	if r.decrementErr != nil {
		return 0, r.decrementErr
	}
	return r.MedicineRepository.DecrementStock(ctx, id, quantity)
}

type hookedOrders struct {
	*memory.OrderRepository
	createErr error
}

func (r *hookedOrders) Create(ctx context.Context, o *order.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.OrderRepository.Create(ctx, o)
}

type hookedWallets struct {
	*memory.WalletRepository
	afterGet func(ctx context.Context, w *wallet.Wallet)
}

func (r *hookedWallets) GetOrCreate(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	w, err := r.WalletRepository.GetOrCreate(ctx, userID)
	if err == nil && r.afterGet != nil {
		r.afterGet(ctx, w)
	}
	return w, err
}

// scenarioA seeds a medicine at 10.00 with 5 in stock, a prescription for 3
// and a wallet holding 50.00.
func scenarioA(t *testing.T, h *harness) (*medicine.Medicine, *prescription.Prescription) {
	t.Helper()
	m := h.medicine(t, "10.00", 5)
	rx := h.prescribe(t, h.patient, m, 3)
	h.fund(t, h.patient, "50.00")
	return m, rx
}

func (h *harness) requireUntouched(t *testing.T, m *medicine.Medicine, rx *prescription.Prescription) {
	t.Helper()
	ctx := context.Background()

	assert.Equal(t, "50.00", h.balance(t, h.patient).StringFixed(2))
	assert.Equal(t, 5, h.stock(t, m))
	assert.Equal(t, prescription.StatusActive, h.status(t, rx))

	orders, err := h.orders.List(ctx, &order.ListOrdersQuery{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	txs, err := h.wallets.ListTransactions(ctx, h.walletID(t, h.patient), 100)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, wallet.TypeDeposit, txs[0].Type)
	assert.True(t, h.ledgerSum(t, h.patient).Equal(h.balance(t, h.patient)))
}

func TestFulfillPrescription_RollsBackWhenLaterStepFails(t *testing.T) {
	tests := []struct {
		name   string
		inject func(h *harness, deps *OrderServiceDeps)
	}{
		{
			name: "order insert",
			inject: func(h *harness, deps *OrderServiceDeps) {
				deps.Orders = &hookedOrders{OrderRepository: h.orders, createErr: errStorage}
			},
		},
		{
			name: "stock decrement",
			inject: func(h *harness, deps *OrderServiceDeps) {
				deps.Medicines = &hookedMedicines{MedicineRepository: h.medRepo, decrementErr: errStorage}
			},
		},
		{
			name: "status transition",
			inject: func(h *harness, deps *OrderServiceDeps) {
				deps.Prescriptions = &hookedPrescriptions{PrescriptionRepository: h.rxRepo, transitionErr: errStorage}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setup(t)
			m, rx := scenarioA(t, h)

			deps := h.orderDeps()
			tt.inject(h, &deps)
			svc := NewOrderService(deps, 5*time.Second, zap.NewNop())

			res, err := svc.FulfillPrescription(context.Background(), h.patient, rx.Number)
			require.ErrorIs(t, err, errStorage)
			assert.Nil(t, res)

			h.requireUntouched(t, m, rx)
			assert.Empty(t, h.pub.Events(events.OrderCompleted))
			assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FulfillmentFailures.WithLabelValues("error")))
		})
	}
}

func TestFulfillPrescription_StatusChangedAfterRead(t *testing.T) {
	h := setup(t)
	m, rx := scenarioA(t, h)

	deps := h.orderDeps()
	deps.Prescriptions = &hookedPrescriptions{
		PrescriptionRepository: h.rxRepo,
		afterGet: func(ctx context.Context, p *prescription.Prescription) {
			// A competing request finishes with the prescription first.
			require.NoError(t, h.rxRepo.TransitionStatus(ctx, p.ID, prescription.StatusActive, prescription.StatusFilled))
		},
	}
	svc := NewOrderService(deps, 5*time.Second, zap.NewNop())

	_, err := svc.FulfillPrescription(context.Background(), h.patient, rx.Number)
	require.ErrorIs(t, err, prescription.ErrInvalidState)

	h.requireUntouched(t, m, rx)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FulfillmentFailures.WithLabelValues("invalid_state")))
}

func TestFulfillPrescription_StockTakenAfterCheck(t *testing.T) {
	h := setup(t)
	m, rx := scenarioA(t, h)

	deps := h.orderDeps()
	deps.Medicines = &hookedMedicines{
		MedicineRepository: h.medRepo,
		afterGet: func(ctx context.Context, got *medicine.Medicine) {
			left, err := h.medRepo.DecrementStock(ctx, got.ID, 4)
			require.NoError(t, err)
			require.Equal(t, 1, left)
		},
	}
	svc := NewOrderService(deps, 5*time.Second, zap.NewNop())

	_, err := svc.FulfillPrescription(context.Background(), h.patient, rx.Number)
	var stockErr *medicine.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	h.requireUntouched(t, m, rx)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FulfillmentFailures.WithLabelValues("insufficient_stock")))
}

func TestFulfillPrescription_FundsSpentAfterCheck(t *testing.T) {
	h := setup(t)
	m, rx := scenarioA(t, h)

	wallets := &hookedWallets{
		WalletRepository: h.wallets,
		afterGet: func(ctx context.Context, w *wallet.Wallet) {
			left, err := h.wallets.Debit(ctx, w.ID, decimal.RequireFromString("45"))
			require.NoError(t, err)
			require.Equal(t, "5.00", left.StringFixed(2))
		},
	}
	deps := h.orderDeps()
	deps.Wallets = NewWalletService(wallets, h.tx, h.audit, h.dispatcher, h.metrics, 50, zap.NewNop())
	svc := NewOrderService(deps, 5*time.Second, zap.NewNop())

	_, err := svc.FulfillPrescription(context.Background(), h.patient, rx.Number)
	var fundsErr *wallet.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, "30.00", fundsErr.Required.StringFixed(2))
	assert.Equal(t, "5.00", fundsErr.Available.StringFixed(2))

	h.requireUntouched(t, m, rx)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FulfillmentFailures.WithLabelValues("insufficient_funds")))
}
