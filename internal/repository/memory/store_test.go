package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTxManager(store)
	meds := NewMedicineRepository(store)
	wallets := NewWalletRepository(store)

	m := &medicine.Medicine{Name: "Amoxicillin", Price: decimal.RequireFromString("4.50"), Stock: 10}
	require.NoError(t, meds.Create(ctx, m))
	w, err := wallets.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)
	_, err = wallets.Credit(ctx, w.ID, decimal.NewFromInt(20))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := wallets.Debit(ctx, w.ID, decimal.NewFromInt(5)); err != nil {
			return err
		}
		if _, err := meds.DecrementStock(ctx, m.ID, 4); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := meds.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	again, err := wallets.GetOrCreate(ctx, w.UserID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(20)), "balance %s", again.Balance)
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTxManager(store)
	meds := NewMedicineRepository(store)

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			return meds.Create(ctx, &medicine.Medicine{Name: "Ibuprofen", Stock: 1})
		})
	})
	require.NoError(t, err)

	list, err := meds.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMedicineRepository_DecrementStockNeverNegative(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	meds := NewMedicineRepository(store)
	m := &medicine.Medicine{Name: "Cetirizine", Stock: 10}
	require.NoError(t, meds.Create(ctx, m))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := meds.DecrementStock(ctx, m.ID, 3); err == nil {
				mu.Lock()
				applied += 3
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, medicine.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	got, err := meds.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, applied)
	assert.Equal(t, 1, got.Stock)
}

func TestMedicineRepository_DeleteRestrictedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	meds := NewMedicineRepository(store)
	rxs := NewPrescriptionRepository(store)

	used := &medicine.Medicine{Name: "Metformin", Stock: 5}
	free := &medicine.Medicine{Name: "Loratadine", Stock: 5}
	require.NoError(t, meds.Create(ctx, used))
	require.NoError(t, meds.Create(ctx, free))
	require.NoError(t, rxs.Create(ctx, &prescription.Prescription{
		Number: "RX-00000001", PatientNationalID: "1234567890", MedicineID: used.ID, Quantity: 1,
	}))

	assert.ErrorIs(t, meds.Delete(ctx, used.ID), medicine.ErrMedicineInUse)
	require.NoError(t, meds.Delete(ctx, free.ID))
	assert.ErrorIs(t, meds.Delete(ctx, free.ID), medicine.ErrMedicineNotFound)
}

func TestPrescriptionRepository_TransitionIsGuarded(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rxs := NewPrescriptionRepository(store)
	p := &prescription.Prescription{Number: "RX-0000000A", PatientNationalID: "1234567890", Quantity: 2}
	require.NoError(t, rxs.Create(ctx, p))

	require.NoError(t, rxs.TransitionStatus(ctx, p.ID, prescription.StatusActive, prescription.StatusFilled))
	assert.ErrorIs(t, rxs.TransitionStatus(ctx, p.ID, prescription.StatusActive, prescription.StatusFilled), prescription.ErrInvalidState)

	_, err := rxs.GetActiveForPatient(ctx, p.Number, p.PatientNationalID)
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)
}

func TestWalletRepository_DebitReportsNumbers(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	wallets := NewWalletRepository(store)
	w, err := wallets.GetOrCreate(ctx, uuid.New())
	require.NoError(t, err)
	_, err = wallets.Credit(ctx, w.ID, decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = wallets.Debit(ctx, w.ID, decimal.NewFromInt(30))
	var funds *wallet.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, "20", funds.Shortage().String())

	_, err = wallets.Credit(ctx, w.ID, decimal.Zero)
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
}

func TestWalletRepository_GetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	wallets := NewWalletRepository(NewStore())
	userID := uuid.New()

	a, err := wallets.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	b, err := wallets.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.True(t, b.Balance.IsZero())
}

func TestOrderRepository_RevenueAndStats(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderRepository(NewStore())
	patient := uuid.New()
	items := []order.Item{{MedicineID: uuid.New(), Quantity: 2, PriceAtTime: decimal.RequireFromString("7.25")}}

	require.NoError(t, orders.Create(ctx, order.New("ORD-00000001", patient, nil, items)))
	require.NoError(t, orders.Create(ctx, order.New("ORD-00000002", uuid.New(), nil, items)))
	for i, status := range []order.OrderStatus{order.StatusPending, order.StatusProcessing, order.StatusCancelled} {
		o := order.New(fmt.Sprintf("ORD-0000001%d", i), patient, nil, items)
		o.Status = status
		require.NoError(t, orders.Create(ctx, o))
	}

	rev, err := orders.Revenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev.OrdersCount)
	assert.Equal(t, "29", rev.TotalRevenue.String())

	stats, err := orders.PatientStats(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.PendingOrders)
	assert.Equal(t, "14.5", stats.TotalSpent.String())

	got, err := orders.GetByNumber(ctx, "ORD-00000001")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, got.ID, got.Items[0].OrderID)
}

func TestUserRepository_EmailUniqueAndLockout(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(NewStore())
	u := &domain.User{Email: "ana@example.com", Role: domain.RolePatient, NationalID: "1234567890"}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, &domain.User{Email: "ANA@example.com"}), domain.ErrEmailTaken)

	for i := 0; i < domain.MaxFailedLogins; i++ {
		require.NoError(t, users.UpdateLoginAttempt(ctx, u.ID, false))
	}
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLocked())

	require.NoError(t, users.UpdateLoginAttempt(ctx, u.ID, true))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLocked())
	assert.Zero(t, got.FailedLoginCount)
}
