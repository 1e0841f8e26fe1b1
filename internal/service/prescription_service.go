package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/idgen"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PrescriptionService struct {
	repo      prescription.Repository
	medicines medicine.Repository
	auditSvc  *AuditService
	events    *events.Dispatcher
	metrics   *metrics.Collector
	log       *zap.Logger
}

func NewPrescriptionService(
	repo prescription.Repository,
	medicines medicine.Repository,
	auditSvc *AuditService,
	dispatcher *events.Dispatcher,
	m *metrics.Collector,
	log *zap.Logger,
) *PrescriptionService {
	return &PrescriptionService{repo: repo, medicines: medicines, auditSvc: auditSvc, events: dispatcher, metrics: m, log: log}
}

// PatientPrescription is an active prescription priced against the current catalog.
type PatientPrescription struct {
	Prescription  *prescription.Prescription
	MedicineName  string
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	MedicineStock int
	CanOrder      bool
}

// CreatePrescription issues a prescription. The stock check here is advisory;
// fulfillment checks stock again.
func (s *PrescriptionService) CreatePrescription(ctx context.Context, id *domain.Identity, cmd *prescription.CreatePrescriptionCommand) (*prescription.Prescription, error) {
	if err := requireRole(id, domain.RoleDoctor); err != nil {
		return nil, err
	}

	cmd.PatientNationalID = strings.TrimSpace(cmd.PatientNationalID)
	var errs []string
	if !domain.ValidNationalID(cmd.PatientNationalID) {
		errs = append(errs, "patient_national_id must be exactly 10 digits")
	}
	if cmd.Quantity <= 0 {
		errs = append(errs, "quantity must be positive")
	}
	if cmd.MedicineID == uuid.Nil {
		errs = append(errs, "medicine_id is required")
	}
	if err := validationFailed(errs); err != nil {
		return nil, err
	}

	med, err := s.medicines.GetByID(ctx, cmd.MedicineID)
	if err != nil {
		return nil, err
	}
	if !med.CanSupply(cmd.Quantity) {
		return nil, &medicine.InsufficientStockError{Available: med.Stock, Requested: cmd.Quantity}
	}

	p := &prescription.Prescription{
		Number:            idgen.Prescription(),
		DoctorID:          id.UserID,
		PatientNationalID: cmd.PatientNationalID,
		MedicineID:        med.ID,
		Dosage:            strings.TrimSpace(cmd.Dosage),
		Duration:          strings.TrimSpace(cmd.Duration),
		Quantity:          cmd.Quantity,
		Notes:             cmd.Notes,
		Status:            prescription.StatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create prescription", zap.Error(err))
		return nil, fmt.Errorf("creating prescription: %w", err)
	}

	s.metrics.PrescriptionsIssued.Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionCreate,
		ResourceType: "prescription",
		ResourceID:   p.Number,
	})
	s.events.Dispatch(ctx, events.New(events.PrescriptionIssued, p.PatientNationalID, events.PrescriptionIssuedPayload{
		PrescriptionID:    p.Number,
		DoctorID:          id.UserID.String(),
		PatientNationalID: p.PatientNationalID,
		MedicineID:        med.ID.String(),
		Quantity:          p.Quantity,
	}))

	s.log.Info("prescription issued",
		zap.String("prescription_id", p.Number),
		zap.String("doctor_id", id.UserID.String()),
	)
	return p, nil
}

// ListPrescriptions scopes by role: doctors see what they issued, patients
// see their own, staff see everything.
func (s *PrescriptionService) ListPrescriptions(ctx context.Context, id *domain.Identity) ([]*prescription.Prescription, error) {
	if id == nil {
		return nil, ErrUnauthorized
	}
	q := &prescription.ListPrescriptionsQuery{}
	switch {
	case id.Role == domain.RoleDoctor:
		q.DoctorID = &id.UserID
	case id.Role == domain.RolePatient:
		if err := requirePatient(id); err != nil {
			return nil, err
		}
		q.PatientNationalID = &id.NationalID
	case id.Role.IsStaff():
	default:
		return nil, ErrForbidden
	}
	return s.repo.List(ctx, q)
}

func (s *PrescriptionService) ListPatientActivePrescriptions(ctx context.Context, id *domain.Identity) ([]*PatientPrescription, error) {
	if err := requirePatient(id); err != nil {
		return nil, err
	}
	active := prescription.StatusActive
	items, err := s.repo.List(ctx, &prescription.ListPrescriptionsQuery{
		PatientNationalID: &id.NationalID,
		Status:            &active,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*PatientPrescription, 0, len(items))
	for _, p := range items {
		view := &PatientPrescription{Prescription: p}
		med, err := s.medicines.GetByID(ctx, p.MedicineID)
		if err == nil {
			view.MedicineName = med.Name
			view.UnitPrice = med.Price
			view.TotalPrice = money.Times(med.Price, p.Quantity)
			view.MedicineStock = med.Stock
			view.CanOrder = med.CanSupply(p.Quantity)
		} else {
			s.log.Warn("prescription references missing medicine",
				zap.String("prescription_id", p.Number),
				zap.Error(err),
			)
		}
		out = append(out, view)
	}
	return out, nil
}

// CancelPrescription retires an active prescription. Only the issuing doctor
// or pharmacy staff may cancel.
func (s *PrescriptionService) CancelPrescription(ctx context.Context, id *domain.Identity, prescriptionID uuid.UUID) (*prescription.Prescription, error) {
	if err := requireRole(id, domain.RoleDoctor, domain.RolePharmacist); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if id.Role == domain.RoleDoctor && p.DoctorID != id.UserID {
		return nil, prescription.ErrPrescriptionNotFound
	}

	if err := s.repo.TransitionStatus(ctx, p.ID, prescription.StatusActive, prescription.StatusCancelled); err != nil {
		return nil, err
	}
	p.Status = prescription.StatusCancelled

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionUpdate,
		ResourceType: "prescription",
		ResourceID:   p.Number,
		Changes:      map[string]any{"status": string(prescription.StatusCancelled)},
	})
	return p, nil
}
