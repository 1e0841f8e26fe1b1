package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
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

type OrderService struct {
	repo          order.Repository
	prescriptions prescription.Repository
	medicines     medicine.Repository
	tx            repository.TxManager
	users         UserLookup
	wallets       *WalletService
	medicineSvc   *MedicineService
	auditSvc      *AuditService
	events        *events.Dispatcher
	metrics       *metrics.Collector
	timeout       time.Duration
	log           *zap.Logger
}

type OrderServiceDeps struct {
	Orders        order.Repository
	Prescriptions prescription.Repository
	Medicines     medicine.Repository
	Tx            repository.TxManager
	Users         UserLookup
	Wallets       *WalletService
	MedicineSvc   *MedicineService
	AuditSvc      *AuditService
	Events        *events.Dispatcher
	Metrics       *metrics.Collector
}

func NewOrderService(deps OrderServiceDeps, timeout time.Duration, log *zap.Logger) *OrderService {
	return &OrderService{
		repo:          deps.Orders,
		prescriptions: deps.Prescriptions,
		medicines:     deps.Medicines,
		tx:            deps.Tx,
		users:         deps.Users,
		wallets:       deps.Wallets,
		medicineSvc:   deps.MedicineSvc,
		auditSvc:      deps.AuditSvc,
		events:        deps.Events,
		metrics:       deps.Metrics,
		timeout:       timeout,
		log:           log,
	}
}

type FulfillmentResult struct {
	Order             *order.Order
	Prescription      *prescription.Prescription
	Medicine          *medicine.Medicine
	WalletBalance     decimal.Decimal
	TransactionNumber string
}

// UserLookup resolves the names shown on order views.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// OrderView is an order with the names its items and prescription refer to.
type OrderView struct {
	Order        *order.Order
	Items        []OrderItemView
	Prescription *PrescriptionSummary
}

type OrderItemView struct {
	order.Item
	MedicineName string
}

// PrescriptionSummary is nil on views of orders whose prescription is gone.
type PrescriptionSummary struct {
	Number       string
	MedicineName string
	Quantity     int
	DoctorName   string
}

// FulfillPrescription turns an active prescription into a paid order. The
// debit, ledger entry, order, stock decrement and status change commit
// together or not at all.
//
// Checks run before any write: role, prescription ownership and status,
// stock, funds. The writes that follow are each guarded so that a concurrent
// request racing for the same wallet, medicine or prescription makes this
// one fail and roll back instead of overdrawing, overselling or filling twice.
func (s *OrderService) FulfillPrescription(ctx context.Context, id *domain.Identity, prescriptionNumber string) (_ *FulfillmentResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			s.metrics.FulfillmentFailures.WithLabelValues(failureReason(err)).Inc()
		}
	}()

	if err := requirePatient(id); err != nil {
		return nil, err
	}
	if prescriptionNumber == "" {
		return nil, &ValidationError{Fields: []string{"prescription_id is required"}}
	}

	ctx, span := tracer.Start(ctx, "OrderService.FulfillPrescription")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("prescription.id", prescriptionNumber),
		attribute.String("user.id", id.UserID.String()),
	)

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var res FulfillmentResult
	var remaining int
	err = s.tx.WithTransaction(txCtx, func(ctx context.Context) error {
		rx, err := s.prescriptions.GetActiveForPatient(ctx, prescriptionNumber, id.NationalID)
		if err != nil {
			return err
		}

		med, err := s.medicines.GetByID(ctx, rx.MedicineID)
		if err != nil {
			return err
		}
		if !med.CanSupply(rx.Quantity) {
			return &medicine.InsufficientStockError{Available: med.Stock, Requested: rx.Quantity}
		}

		// The unit price is captured once here and used for both the charge
		// and the order line.
		unitPrice := med.Price
		total := money.Times(unitPrice, rx.Quantity)

		w, err := s.wallets.GetOrCreate(ctx, id.UserID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(total) {
			return &wallet.InsufficientFundsError{Required: total, Available: w.Balance}
		}

		txn, err := s.wallets.Withdraw(ctx, w, wallet.Entry{
			Amount:      total,
			Description: fmt.Sprintf("Payment for prescription %s: %s x%d", rx.Number, med.Name, rx.Quantity),
			ReferenceID: "ORDER-" + rx.Number,
			Metadata: map[string]any{
				"prescription_id": rx.Number,
				"medicine_name":   med.Name,
				"quantity":        rx.Quantity,
				"unit_price":      money.Float(unitPrice),
			},
		})
		if err != nil {
			return err
		}

		o := order.New(idgen.Order(), id.UserID, &rx.ID, []order.Item{{
			MedicineID:  med.ID,
			Quantity:    rx.Quantity,
			PriceAtTime: unitPrice,
		}})
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		if remaining, err = s.medicines.DecrementStock(ctx, med.ID, rx.Quantity); err != nil {
			return err
		}

		if err := s.prescriptions.TransitionStatus(ctx, rx.ID, prescription.StatusActive, prescription.StatusFilled); err != nil {
			return err
		}
		rx.Status = prescription.StatusFilled
		med.Stock = remaining

		res = FulfillmentResult{
			Order:             o,
			Prescription:      rx,
			Medicine:          med,
			WalletBalance:     w.Balance,
			TransactionNumber: txn.Number,
		}
		return nil
	})
	s.metrics.FulfillmentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logFailure(id, prescriptionNumber, err)
		return nil, err
	}

	s.metrics.OrdersFulfilled.Inc()
	s.metrics.OrderRevenue.Add(money.Float(res.Order.TotalAmount))

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       id.UserID,
		UserRole:     id.Role,
		Action:       domain.ActionCreate,
		ResourceType: "order",
		ResourceID:   res.Order.Number,
		Changes: map[string]any{
			"prescription_id": res.Prescription.Number,
			"total_amount":    res.Order.TotalAmount.StringFixed(2),
			"transaction_id":  res.TransactionNumber,
		},
	})
	s.events.Dispatch(ctx, events.New(events.OrderCompleted, res.Order.Number, events.OrderCompletedPayload{
		OrderID:        res.Order.Number,
		PatientID:      id.UserID.String(),
		PrescriptionID: res.Prescription.Number,
		MedicineID:     res.Medicine.ID.String(),
		Quantity:       res.Prescription.Quantity,
		TotalAmount:    money.Float(res.Order.TotalAmount),
		TransactionID:  res.TransactionNumber,
	}))
	s.medicineSvc.checkLowStock(ctx, res.Medicine, remaining)

	s.log.Info("prescription fulfilled",
		zap.String("order_id", res.Order.Number),
		zap.String("prescription_id", res.Prescription.Number),
		zap.String("total", res.Order.TotalAmount.StringFixed(2)),
	)
	return &res, nil
}

func (s *OrderService) logFailure(id *domain.Identity, number string, err error) {
	fields := []zap.Field{
		zap.String("user_id", id.UserID.String()),
		zap.String("prescription_id", number),
		zap.Error(err),
	}
	switch failureReason(err) {
	case "error":
		s.log.Error("fulfillment failed", fields...)
	default:
		s.log.Warn("fulfillment rejected", fields...)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized), errors.Is(err, domain.ErrMissingProfile):
		return "forbidden"
	case errors.Is(err, prescription.ErrPrescriptionNotFound):
		return "not_found"
	case errors.Is(err, prescription.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, medicine.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			return "validation"
		}
		return "error"
	}
}

// ListOrders returns the caller's orders, or every order for staff.
func (s *OrderService) ListOrders(ctx context.Context, id *domain.Identity) ([]*OrderView, error) {
	q := &order.ListOrdersQuery{}
	switch {
	case id == nil:
		return nil, ErrUnauthorized
	case id.Role == domain.RolePatient:
		q.PatientID = &id.UserID
	case id.Role.IsStaff():
	default:
		return nil, ErrForbidden
	}

	orders, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	r := s.newViewResolver()
	out := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, r.view(ctx, o))
	}
	return out, nil
}

// GetOrder hides other patients' orders behind ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, id *domain.Identity, number string) (*OrderView, error) {
	if err := requireRole(id, domain.RolePatient, domain.RolePharmacist); err != nil {
		return nil, err
	}
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if id.Role == domain.RolePatient && o.PatientID != id.UserID {
		return nil, order.ErrOrderNotFound
	}
	return s.newViewResolver().view(ctx, o), nil
}

// viewResolver memoises lookups across the orders of one listing. Lookups
// that fail leave the name empty.
type viewResolver struct {
	svc           *OrderService
	medicines     map[uuid.UUID]string
	doctors       map[uuid.UUID]string
	prescriptions map[uuid.UUID]*prescription.Prescription
}

func (s *OrderService) newViewResolver() *viewResolver {
	return &viewResolver{
		svc:           s,
		medicines:     make(map[uuid.UUID]string),
		doctors:       make(map[uuid.UUID]string),
		prescriptions: make(map[uuid.UUID]*prescription.Prescription),
	}
}

func (r *viewResolver) view(ctx context.Context, o *order.Order) *OrderView {
	v := &OrderView{Order: o, Items: make([]OrderItemView, 0, len(o.Items))}
	for _, it := range o.Items {
		v.Items = append(v.Items, OrderItemView{Item: it, MedicineName: r.medicineName(ctx, it.MedicineID)})
	}
	if o.PrescriptionID == nil {
		return v
	}
	if p := r.prescription(ctx, *o.PrescriptionID); p != nil {
		v.Prescription = &PrescriptionSummary{
			Number:       p.Number,
			MedicineName: r.medicineName(ctx, p.MedicineID),
			Quantity:     p.Quantity,
			DoctorName:   r.doctorName(ctx, p.DoctorID),
		}
	}
	return v
}

func (r *viewResolver) prescription(ctx context.Context, id uuid.UUID) *prescription.Prescription {
	if p, ok := r.prescriptions[id]; ok {
		return p
	}
	p, err := r.svc.prescriptions.GetByID(ctx, id)
	if err != nil {
		p = nil
	}
	r.prescriptions[id] = p
	return p
}

func (r *viewResolver) medicineName(ctx context.Context, id uuid.UUID) string {
	if n, ok := r.medicines[id]; ok {
		return n
	}
	var name string
	if m, err := r.svc.medicines.GetByID(ctx, id); err == nil {
		name = m.Name
	}
	r.medicines[id] = name
	return name
}

func (r *viewResolver) doctorName(ctx context.Context, id uuid.UUID) string {
	if r.svc.users == nil {
		return ""
	}
	if n, ok := r.doctors[id]; ok {
		return n
	}
	var name string
	if u, err := r.svc.users.GetByID(ctx, id); err == nil {
		name = u.Name
	}
	r.doctors[id] = name
	return name
}
