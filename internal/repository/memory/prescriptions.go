package memory

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/google/uuid"
)

type PrescriptionRepository struct{ store *Store }

func NewPrescriptionRepository(store *Store) *PrescriptionRepository {
	return &PrescriptionRepository{store: store}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = prescription.StatusActive
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.store.s.prescriptions[p.ID] = *p
	r.store.s.prescriptionOrder = append(r.store.s.prescriptionOrder, p.ID)
	return nil
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.s.prescriptions[id]
	if !ok {
		return nil, prescription.ErrPrescriptionNotFound
	}
	return &p, nil
}

func (r *PrescriptionRepository) GetActiveForPatient(ctx context.Context, number, nationalID string) (*prescription.Prescription, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, p := range r.store.s.prescriptions {
		if p.Number == number && p.BelongsTo(nationalID) && p.IsActive() {
			return &p, nil
		}
	}
	return nil, prescription.ErrPrescriptionNotFound
}

func (r *PrescriptionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to prescription.PrescriptionStatus) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	p, ok := r.store.s.prescriptions[id]
	if !ok || p.Status != from {
		return prescription.ErrInvalidState
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	r.store.s.prescriptions[id] = p
	return nil
}

func (r *PrescriptionRepository) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) ([]*prescription.Prescription, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	return newestFirst(r.store.s.prescriptionOrder, r.store.s.prescriptions, func(p prescription.Prescription) bool {
		if q.DoctorID != nil && p.DoctorID != *q.DoctorID {
			return false
		}
		if q.PatientNationalID != nil && p.PatientNationalID != *q.PatientNationalID {
			return false
		}
		if q.Status != nil && p.Status != *q.Status {
			return false
		}
		return true
	}), nil
}

func (r *PrescriptionRepository) CountActiveForPatient(ctx context.Context, nationalID string) (int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	var n int64
	for _, p := range r.store.s.prescriptions {
		if p.PatientNationalID == nationalID && p.IsActive() {
			n++
		}
	}
	return n, nil
}
