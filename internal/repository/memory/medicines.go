package memory

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/google/uuid"
)

type MedicineRepository struct{ store *Store }

func NewMedicineRepository(store *Store) *MedicineRepository {
	return &MedicineRepository{store: store}
}

func (r *MedicineRepository) Create(ctx context.Context, m *medicine.Medicine) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	r.store.s.medicines[m.ID] = *m
	r.store.s.medicineOrder = append(r.store.s.medicineOrder, m.ID)
	return nil
}

func (r *MedicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*medicine.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	m, ok := r.store.s.medicines[id]
	if !ok {
		return nil, medicine.ErrMedicineNotFound
	}
	return &m, nil
}

func (r *MedicineRepository) Update(ctx context.Context, m *medicine.Medicine) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.s.medicines[m.ID]; !ok {
		return medicine.ErrMedicineNotFound
	}
	m.UpdatedAt = time.Now().UTC()
	r.store.s.medicines[m.ID] = *m
	return nil
}

func (r *MedicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	s := r.store.s
	if _, ok := s.medicines[id]; !ok {
		return medicine.ErrMedicineNotFound
	}
	for _, p := range s.prescriptions {
		if p.MedicineID == id {
			return medicine.ErrMedicineInUse
		}
	}
	for _, o := range s.orders {
		for _, it := range o.Items {
			if it.MedicineID == id {
				return medicine.ErrMedicineInUse
			}
		}
	}
	delete(s.medicines, id)
	s.medicineOrder = removeID(s.medicineOrder, id)
	return nil
}

func (r *MedicineRepository) List(ctx context.Context) ([]*medicine.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return newestFirst(r.store.s.medicineOrder, r.store.s.medicines, nil), nil
}

func (r *MedicineRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	m, ok := r.store.s.medicines[id]
	if !ok {
		return 0, medicine.ErrMedicineNotFound
	}
	if m.Stock < quantity {
		return 0, &medicine.InsufficientStockError{Available: m.Stock, Requested: quantity}
	}
	m.Stock -= quantity
	m.UpdatedAt = time.Now().UTC()
	r.store.s.medicines[id] = m
	return m.Stock, nil
}

func (r *MedicineRepository) CreateAlert(ctx context.Context, a *medicine.Alert) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	r.store.s.alerts = append(r.store.s.alerts, *a)
	return nil
}

func (r *MedicineRepository) ListAlerts(ctx context.Context, limit int) ([]*medicine.Alert, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	alerts := r.store.s.alerts
	out := make([]*medicine.Alert, 0, min(limit, len(alerts)))
	for i := len(alerts) - 1; i >= 0 && len(out) < limit; i-- {
		a := alerts[i]
		out = append(out, &a)
	}
	return out, nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
