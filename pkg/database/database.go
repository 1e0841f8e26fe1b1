package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"auth", "pharmacy", "ledger", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&medicine.Medicine{},
		&medicine.Alert{},
		&prescription.Prescription{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&order.Order{},
		&order.Item{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createConstraints(db, log); err != nil {
		return fmt.Errorf("creating constraints: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// createConstraints adds the checks and foreign keys AutoMigrate cannot
// express. Each statement is idempotent.
func createConstraints(db *gorm.DB, log *zap.Logger) error {
	statements := []struct {
		name  string
		query string
	}{
		{
			name:  "chk_medicines_stock",
			query: `ALTER TABLE pharmacy.medicines ADD CONSTRAINT chk_medicines_stock CHECK (stock >= 0 AND price >= 0)`,
		},
		{
			name:  "chk_prescriptions_quantity",
			query: `ALTER TABLE pharmacy.prescriptions ADD CONSTRAINT chk_prescriptions_quantity CHECK (quantity > 0)`,
		},
		{
			name:  "chk_wallets_balance",
			query: `ALTER TABLE ledger.wallets ADD CONSTRAINT chk_wallets_balance CHECK (balance >= 0)`,
		},
		{
			name:  "chk_transactions_amount",
			query: `ALTER TABLE ledger.transactions ADD CONSTRAINT chk_transactions_amount CHECK (amount > 0)`,
		},
		{
			name: "fk_prescriptions_medicine",
			query: `ALTER TABLE pharmacy.prescriptions ADD CONSTRAINT fk_prescriptions_medicine
				FOREIGN KEY (medicine_id) REFERENCES pharmacy.medicines (id) ON DELETE RESTRICT`,
		},
		{
			name: "fk_order_items_medicine",
			query: `ALTER TABLE pharmacy.order_items ADD CONSTRAINT fk_order_items_medicine
				FOREIGN KEY (medicine_id) REFERENCES pharmacy.medicines (id) ON DELETE RESTRICT`,
		},
		{
			name: "fk_orders_prescription",
			query: `ALTER TABLE pharmacy.orders ADD CONSTRAINT fk_orders_prescription
				FOREIGN KEY (prescription_id) REFERENCES pharmacy.prescriptions (id) ON DELETE SET NULL`,
		},
		{
			name: "fk_transactions_wallet",
			query: `ALTER TABLE ledger.transactions ADD CONSTRAINT fk_transactions_wallet
				FOREIGN KEY (wallet_id) REFERENCES ledger.wallets (id) ON DELETE RESTRICT`,
		},
		{
			name:  "idx_prescriptions_patient_active",
			query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_patient_active ON pharmacy.prescriptions (patient_national_id, number) WHERE status = 'active'`,
		},
		{
			name:  "idx_transactions_wallet_created",
			query: `CREATE INDEX IF NOT EXISTS idx_transactions_wallet_created ON ledger.transactions (wallet_id, created_at DESC)`,
		},
	}

	for _, st := range statements {
		var exists bool
		if err := db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?) OR EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = ?)`,
			st.name, st.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("checking %s: %w", st.name, err)
		}
		if exists {
			continue
		}
		if err := db.Exec(st.query).Error; err != nil {
			return fmt.Errorf("applying %s: %w", st.name, err)
		}
		log.Debug("applied constraint", zap.String("name", st.name))
	}

	return nil
}
