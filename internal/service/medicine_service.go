package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultAlertLimit = 100

type MedicineService struct {
	repo              medicine.Repository
	tx                repository.TxManager
	auditSvc          *AuditService
	events            *events.Dispatcher
	metrics           *metrics.Collector
	lowStockThreshold int
	log               *zap.Logger
}

func NewMedicineService(
	repo medicine.Repository,
	tx repository.TxManager,
	auditSvc *AuditService,
	dispatcher *events.Dispatcher,
	m *metrics.Collector,
	lowStockThreshold int,
	log *zap.Logger,
) *MedicineService {
	return &MedicineService{
		repo:              repo,
		tx:                tx,
		auditSvc:          auditSvc,
		events:            dispatcher,
		metrics:           m,
		lowStockThreshold: lowStockThreshold,
		log:               log,
	}
}

func (s *MedicineService) ListMedicines(ctx context.Context, id *domain.Identity) ([]*medicine.Medicine, error) {
	if id == nil {
		return nil, ErrUnauthorized
	}
	return s.repo.List(ctx)
}

func (s *MedicineService) GetMedicine(ctx context.Context, id *domain.Identity, medicineID uuid.UUID) (*medicine.Medicine, error) {
	if id == nil {
		return nil, ErrUnauthorized
	}
	return s.repo.GetByID(ctx, medicineID)
}

func (s *MedicineService) CreateMedicine(ctx context.Context, id *domain.Identity, cmd *medicine.CreateMedicineCommand) (*medicine.Medicine, error) {
	if err := requireRole(id, domain.RolePharmacist); err != nil {
		return nil, err
	}

	m := &medicine.Medicine{
		Name:         strings.TrimSpace(cmd.Name),
		Category:     strings.TrimSpace(cmd.Category),
		Manufacturer: strings.TrimSpace(cmd.Manufacturer),
		BatchNumber:  strings.TrimSpace(cmd.BatchNumber),
		ExpiryDate:   cmd.ExpiryDate,
		Price:        money.Round(cmd.Price),
		Stock:        cmd.Stock,
		Notes:        cmd.Notes,
	}
	if err := validationFailed(m.Validate()); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		s.log.Error("failed to create medicine", zap.Error(err))
		return nil, fmt.Errorf("creating medicine: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionCreate,
		ResourceType: "medicine",
		ResourceID:   m.ID.String(),
	})

	return m, nil
}

// UpdateMedicine applies a partial patch. The row is read and written inside
// one transaction so a concurrent fulfillment cannot interleave a stock change.
func (s *MedicineService) UpdateMedicine(ctx context.Context, id *domain.Identity, medicineID uuid.UUID, cmd *medicine.UpdateMedicineCommand) (*medicine.Medicine, error) {
	if err := requireRole(id, domain.RolePharmacist); err != nil {
		return nil, err
	}

	var updated *medicine.Medicine
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, medicineID)
		if err != nil {
			return err
		}
		cmd.Apply(m)
		m.Name = strings.TrimSpace(m.Name)
		m.Price = money.Round(m.Price)
		if err := validationFailed(m.Validate()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionUpdate,
		ResourceType: "medicine",
		ResourceID:   medicineID.String(),
		Changes:      cmd.Changes(),
	})

	s.checkLowStock(ctx, updated, updated.Stock)
	return updated, nil
}

func (s *MedicineService) DeleteMedicine(ctx context.Context, id *domain.Identity, medicineID uuid.UUID) error {
	if err := requireRole(id, domain.RolePharmacist); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, medicineID); err != nil {
		if !errors.Is(err, medicine.ErrMedicineInUse) && !errors.Is(err, medicine.ErrMedicineNotFound) {
			s.log.Error("failed to delete medicine", zap.Error(err))
		}
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionDelete,
		ResourceType: "medicine",
		ResourceID:   medicineID.String(),
	})
	return nil
}

func (s *MedicineService) ListAlerts(ctx context.Context, id *domain.Identity, limit int) ([]*medicine.Alert, error) {
	if err := requireRole(id, domain.RolePharmacist); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultAlertLimit {
		limit = defaultAlertLimit
	}
	return s.repo.ListAlerts(ctx, limit)
}

// checkLowStock records an alert and publishes an event when remaining has
// dropped below the threshold. Runs after commit; failures are only logged.
func (s *MedicineService) checkLowStock(ctx context.Context, m *medicine.Medicine, remaining int) {
	if remaining >= s.lowStockThreshold {
		return
	}

	alert := &medicine.Alert{
		MedicineID: m.ID,
		Type:       medicine.AlertLowStock,
		Message:    fmt.Sprintf("%s stock is low: %d left", m.Name, remaining),
	}
	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		s.log.Error("failed to record low stock alert", zap.String("medicine_id", m.ID.String()), zap.Error(err))
	}
	s.metrics.LowStockAlerts.Inc()

	s.events.Dispatch(ctx, events.New(events.MedicineLowStock, m.ID.String(), events.LowStockPayload{
		MedicineID: m.ID.String(),
		Name:       m.Name,
		Stock:      remaining,
		Threshold:  s.lowStockThreshold,
	}))
}
