package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		return fmt.Errorf("inserting prescription: %w", err)
	}
	return nil
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := conn(ctx, r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying prescription: %w", err)
	}
	return &p, nil
}

func (r *PrescriptionRepository) GetActiveForPatient(ctx context.Context, number, nationalID string) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := forUpdate(ctx, conn(ctx, r.db)).
		Where("number = ? AND patient_national_id = ? AND status = ?", number, nationalID, prescription.StatusActive).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying active prescription: %w", err)
	}
	return &p, nil
}

// TransitionStatus is a status-guarded update; zero affected rows means another
// writer already moved the prescription out of from.
func (r *PrescriptionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to prescription.PrescriptionStatus) error {
	res := conn(ctx, r.db).Model(&prescription.Prescription{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("updating prescription status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return prescription.ErrInvalidState
	}
	return nil
}

func (r *PrescriptionRepository) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) ([]*prescription.Prescription, error) {
	db := conn(ctx, r.db).Model(&prescription.Prescription{})
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.PatientNationalID != nil {
		db = db.Where("patient_national_id = ?", *q.PatientNationalID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	var items []*prescription.Prescription
	if err := db.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}
	return items, nil
}

func (r *PrescriptionRepository) CountActiveForPatient(ctx context.Context, nationalID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&prescription.Prescription{}).
		Where("patient_national_id = ? AND status = ?", nationalID, prescription.StatusActive).
		Count(&n).Error
	return n, err
}
