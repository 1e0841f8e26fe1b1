package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	v1 "github.com/dmehra2102/prod-golang-projects/pharmacare/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/tracer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pharmacare: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log = log.With(zap.String("service", cfg.App.Name), zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initialising tracer: %w", err)
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting sql.DB: %w", err)
	}
	defer sqlDB.Close()

	m := metrics.NewCollector("pharmacare", prometheus.DefaultRegisterer)

	publisher, err := events.NewPublisher(cfg.Events, log)
	if err != nil {
		return err
	}
	dispatcher := events.NewDispatcher(publisher, cfg.Events.PublishTimeout, m, log)

	tx := postgres.NewTxManager(db)
	userRepo := postgres.NewUserRepository(db)
	medicineRepo := postgres.NewMedicineRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	walletRepo := postgres.NewWalletRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	auditSvc := service.NewAuditService(postgres.NewAuditRepository(db), m, log)
	medicineSvc := service.NewMedicineService(medicineRepo, tx, auditSvc, dispatcher, m, cfg.Pharmacy.LowStockThreshold, log)
	walletSvc := service.NewWalletService(walletRepo, tx, auditSvc, dispatcher, m, cfg.Pharmacy.TransactionsLimit, log)

	services := v1.Services{
		Auth:          service.NewAuthService(userRepo, jwtManager, auditSvc, cfg.JWT.Issuer, log),
		Medicines:     medicineSvc,
		Prescriptions: service.NewPrescriptionService(prescriptionRepo, medicineRepo, auditSvc, dispatcher, m, log),
		Wallets:       walletSvc,
		Orders: service.NewOrderService(service.OrderServiceDeps{
			Orders:        orderRepo,
			Prescriptions: prescriptionRepo,
			Medicines:     medicineRepo,
			Tx:            tx,
			Users:         userRepo,
			Wallets:       walletSvc,
			MedicineSvc:   medicineSvc,
			AuditSvc:      auditSvc,
			Events:        dispatcher,
			Metrics:       m,
		}, cfg.Pharmacy.FulfillmentTimeout, log),
		Reports: service.NewReportService(orderRepo, prescriptionRepo, walletSvc),
	}

	router := v1.NewRouter(v1.RouterDeps{
		Config:   cfg,
		Services: services,
		JWT:      jwtManager,
		Metrics:  m,
		Log:      log,
		Health:   sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}
	// Handlers still running after a timed-out shutdown have their audit
	// entries dropped.
	auditSvc.Shutdown()
	if err := dispatcher.Close(); err != nil {
		log.Error("closing event publisher", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("tracer shutdown", zap.Error(err))
	}

	log.Info("shutdown complete", zap.Duration("grace", cfg.Server.ShutdownTimeout.Round(time.Second)))
	return nil
}
