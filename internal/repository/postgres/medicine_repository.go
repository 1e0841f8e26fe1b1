package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var medicineColumns = []string{
	"name", "category", "manufacturer", "batch_number", "expiry_date", "price", "stock", "notes",
}

type MedicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

func (r *MedicineRepository) Create(ctx context.Context, m *medicine.Medicine) error {
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("inserting medicine: %w", err)
	}
	return nil
}

func (r *MedicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*medicine.Medicine, error) {
	var m medicine.Medicine
	err := forUpdate(ctx, conn(ctx, r.db)).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, medicine.ErrMedicineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying medicine: %w", err)
	}
	return &m, nil
}

func (r *MedicineRepository) Update(ctx context.Context, m *medicine.Medicine) error {
	res := conn(ctx, r.db).Model(m).Select(medicineColumns).Updates(m)
	if res.Error != nil {
		return fmt.Errorf("updating medicine: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return medicine.ErrMedicineNotFound
	}
	return nil
}

// Delete refuses to remove a medicine that historical rows still point at.
func (r *MedicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&prescription.Prescription{}).Where("medicine_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("counting prescription references: %w", err)
		}
		if refs == 0 {
			if err := tx.Model(&order.Item{}).Where("medicine_id = ?", id).Count(&refs).Error; err != nil {
				return fmt.Errorf("counting order item references: %w", err)
			}
		}
		if refs > 0 {
			return medicine.ErrMedicineInUse
		}

		res := tx.Where("id = ?", id).Delete(&medicine.Medicine{})
		if res.Error != nil {
			return fmt.Errorf("deleting medicine: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return medicine.ErrMedicineNotFound
		}
		return nil
	})
}

func (r *MedicineRepository) List(ctx context.Context) ([]*medicine.Medicine, error) {
	var items []*medicine.Medicine
	if err := conn(ctx, r.db).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing medicines: %w", err)
	}
	return items, nil
}

// DecrementStock is a guarded update: the WHERE clause only matches while
// enough stock remains, so concurrent decrements can never oversell.
func (r *MedicineRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	db := conn(ctx, r.db)
	res := db.Model(&medicine.Medicine{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return 0, fmt.Errorf("decrementing stock: %w", res.Error)
	}

	var current medicine.Medicine
	if err := db.Select("stock").Where("id = ?", id).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, medicine.ErrMedicineNotFound
		}
		return 0, fmt.Errorf("reading stock: %w", err)
	}
	if res.RowsAffected == 0 {
		return 0, &medicine.InsufficientStockError{Available: current.Stock, Requested: quantity}
	}
	return current.Stock, nil
}

func (r *MedicineRepository) CreateAlert(ctx context.Context, a *medicine.Alert) error {
	return conn(ctx, r.db).Create(a).Error
}

func (r *MedicineRepository) ListAlerts(ctx context.Context, limit int) ([]*medicine.Alert, error) {
	var alerts []*medicine.Alert
	if err := conn(ctx, r.db).Order("created_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}
