package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// dsnEnv points the integration tests at a disposable database, e.g.
// "host=localhost user=postgres password=postgres dbname=pharmacare_test sslmode=disable".
const dsnEnv = "PHARMACARE_TEST_DSN"

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db, zap.NewNop()))
	return db
}

type stack struct {
	wallets   *postgres.WalletRepository
	medicines *postgres.MedicineRepository
	rx        *postgres.PrescriptionRepository
	orders    *postgres.OrderRepository

	medicineSvc *service.MedicineService
	rxSvc       *service.PrescriptionService
	walletSvc   *service.WalletService
	orderSvc    *service.OrderService

	pharmacist *domain.Identity
	doctor     *domain.Identity
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := openDB(t)
	log := zap.NewNop()
	m := metrics.NewCollector("it", prometheus.NewRegistry())
	tx := postgres.NewTxManager(db)
	dispatcher := events.NewDispatcher(events.NewMemoryPublisher(), time.Second, m, log)
	audit := service.NewAuditService(postgres.NewAuditRepository(db), m, log)
	t.Cleanup(audit.Shutdown)

	s := &stack{
		wallets:    postgres.NewWalletRepository(db),
		medicines:  postgres.NewMedicineRepository(db),
		rx:         postgres.NewPrescriptionRepository(db),
		orders:     postgres.NewOrderRepository(db),
		pharmacist: &domain.Identity{UserID: uuid.New(), Role: domain.RolePharmacist, PracticeCode: "A-100001"},
		doctor:     &domain.Identity{UserID: uuid.New(), Role: domain.RoleDoctor, PracticeCode: "A-100002"},
	}
	s.medicineSvc = service.NewMedicineService(s.medicines, tx, audit, dispatcher, m, 0, log)
	s.rxSvc = service.NewPrescriptionService(s.rx, s.medicines, audit, dispatcher, m, log)
	s.walletSvc = service.NewWalletService(s.wallets, tx, audit, dispatcher, m, 50, log)
	s.orderSvc = service.NewOrderService(service.OrderServiceDeps{
		Orders:        s.orders,
		Prescriptions: s.rx,
		Medicines:     s.medicines,
		Tx:            tx,
		Users:         postgres.NewUserRepository(db),
		Wallets:       s.walletSvc,
		MedicineSvc:   s.medicineSvc,
		AuditSvc:      audit,
		Events:        dispatcher,
		Metrics:       m,
	}, 30*time.Second, log)
	return s
}

// newPatient returns a patient with a national ID unlikely to collide with
// rows left by earlier runs, holding the given balance.
func (s *stack) newPatient(t *testing.T, funds string) *domain.Identity {
	t.Helper()
	p := &domain.Identity{
		UserID:     uuid.New(),
		Role:       domain.RolePatient,
		NationalID: fmt.Sprintf("%010d", rand.Int64N(10_000_000_000)),
	}
	_, _, err := s.walletSvc.DepositFor(context.Background(), p, decimal.RequireFromString(funds))
	require.NoError(t, err)
	return p
}

func (s *stack) newMedicine(t *testing.T, price string, stock int) *medicine.Medicine {
	t.Helper()
	m, err := s.medicineSvc.CreateMedicine(context.Background(), s.pharmacist, &medicine.CreateMedicineCommand{
		Name:  "Ibuprofen 200mg " + uuid.NewString()[:8],
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return m
}

func (s *stack) prescribe(t *testing.T, p *domain.Identity, m *medicine.Medicine, qty int) *prescription.Prescription {
	t.Helper()
	rx, err := s.rxSvc.CreatePrescription(context.Background(), s.doctor, &prescription.CreatePrescriptionCommand{
		PatientNationalID: p.NationalID,
		MedicineID:        m.ID,
		Dosage:            "1 tablet",
		Duration:          "5 days",
		Quantity:          qty,
	})
	require.NoError(t, err)
	return rx
}

func (s *stack) balance(t *testing.T, p *domain.Identity) decimal.Decimal {
	t.Helper()
	w, err := s.walletSvc.MyWallet(context.Background(), p)
	require.NoError(t, err)
	return w.Balance
}

func (s *stack) ledgerSum(t *testing.T, p *domain.Identity) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	w, err := s.wallets.GetOrCreate(ctx, p.UserID)
	require.NoError(t, err)
	txs, err := s.wallets.ListTransactions(ctx, w.ID, 10_000)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.SignedAmount())
	}
	return sum
}

func (s *stack) stock(t *testing.T, m *medicine.Medicine) int {
	t.Helper()
	got, err := s.medicines.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	return got.Stock
}

// fulfillConcurrently releases every attempt at once and returns their errors.
func fulfillConcurrently(s *stack, attempts []func() (*domain.Identity, string)) []error {
	errs := make([]error, len(attempts))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, attempt := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, number := attempt()
			<-start
			_, errs[i] = s.orderSvc.FulfillPrescription(context.Background(), p, number)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestFulfillment_OnePrescriptionFilledOnce(t *testing.T) {
	s := newStack(t)
	m := s.newMedicine(t, "10.00", 100)
	p := s.newPatient(t, "1000.00")
	rx := s.prescribe(t, p, m, 2)

	const n = 16
	attempts := make([]func() (*domain.Identity, string), n)
	for i := range attempts {
		attempts[i] = func() (*domain.Identity, string) { return p, rx.Number }
	}
	errs := fulfillConcurrently(s, attempts)

	var filled int
	for _, err := range errs {
		if err == nil {
			filled++
			continue
		}
		assert.True(t,
			errors.Is(err, prescription.ErrPrescriptionNotFound) || errors.Is(err, prescription.ErrInvalidState),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, filled)

	assert.Equal(t, "980.00", s.balance(t, p).StringFixed(2))
	assert.True(t, s.ledgerSum(t, p).Equal(s.balance(t, p)))
	assert.Equal(t, 98, s.stock(t, m))

	got, err := s.rx.GetByID(context.Background(), rx.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusFilled, got.Status)

	orders, err := s.orders.List(context.Background(), &order.ListOrdersQuery{PatientID: &p.UserID})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestFulfillment_SharedStockNeverOversold(t *testing.T) {
	s := newStack(t)
	m := s.newMedicine(t, "10.00", 10)

	const n = 12
	patients := make([]*domain.Identity, n)
	numbers := make([]string, n)
	attempts := make([]func() (*domain.Identity, string), n)
	for i := range patients {
		patients[i] = s.newPatient(t, "100.00")
		numbers[i] = s.prescribe(t, patients[i], m, 3).Number
		attempts[i] = func() (*domain.Identity, string) { return patients[i], numbers[i] }
	}
	errs := fulfillConcurrently(s, attempts)

	var filled int
	for i, err := range errs {
		bal := s.balance(t, patients[i])
		assert.True(t, s.ledgerSum(t, patients[i]).Equal(bal), "patient %d ledger mismatch", i)
		if err == nil {
			filled++
			assert.Equal(t, "70.00", bal.StringFixed(2))
			continue
		}
		assert.ErrorIs(t, err, medicine.ErrInsufficientStock)
		assert.Equal(t, "100.00", bal.StringFixed(2))
	}
	assert.Equal(t, 3, filled)
	assert.Equal(t, 1, s.stock(t, m))
}

func TestFulfillment_SharedWalletNeverOverdrawn(t *testing.T) {
	s := newStack(t)
	m := s.newMedicine(t, "10.00", 100)
	p := s.newPatient(t, "25.00")

	const n = 5
	attempts := make([]func() (*domain.Identity, string), n)
	for i := range attempts {
		number := s.prescribe(t, p, m, 1).Number
		attempts[i] = func() (*domain.Identity, string) { return p, number }
	}
	errs := fulfillConcurrently(s, attempts)

	var filled int
	for _, err := range errs {
		if err == nil {
			filled++
			continue
		}
		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	}
	assert.Equal(t, 2, filled)
	assert.Equal(t, "5.00", s.balance(t, p).StringFixed(2))
	assert.True(t, s.ledgerSum(t, p).Equal(s.balance(t, p)))
	assert.Equal(t, 98, s.stock(t, m))
}
