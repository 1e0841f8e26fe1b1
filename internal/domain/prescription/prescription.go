package prescription

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionStatus string

const (
	StatusActive    PrescriptionStatus = "active"
	StatusFilled    PrescriptionStatus = "filled"
	StatusExpired   PrescriptionStatus = "expired"
	StatusCancelled PrescriptionStatus = "cancelled"
)

func (s PrescriptionStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusFilled, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further fulfillment may happen from this status.
func (s PrescriptionStatus) IsTerminal() bool {
	return s != StatusActive
}

type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// Number is the human-readable identifier, RX- followed by 8 uppercase hex chars.
	Number   string    `gorm:"column:number;type:varchar(20);uniqueIndex;not null"`
	DoctorID uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	// PatientNationalID is deliberately not a foreign key to auth.users.
	PatientNationalID string    `gorm:"column:patient_national_id;type:varchar(20);not null;index"`
	MedicineID        uuid.UUID `gorm:"column:medicine_id;type:uuid;not null;index"`

	Dosage   string `gorm:"column:dosage;type:varchar(100)"`
	Duration string `gorm:"column:duration;type:varchar(100)"`
	Quantity int    `gorm:"column:quantity;not null"`
	Notes    string `gorm:"column:notes;type:text"`

	Status PrescriptionStatus `gorm:"column:status;type:varchar(20);not null;default:'active';index"`
}

func (Prescription) TableName() string {
	return "pharmacy.prescriptions"
}

func (p *Prescription) IsActive() bool {
	return p.Status == StatusActive
}

// BelongsTo reports whether the prescription was written for the given national ID.
func (p *Prescription) BelongsTo(nationalID string) bool {
	return nationalID != "" && p.PatientNationalID == nationalID
}

type CreatePrescriptionCommand struct {
	DoctorID          uuid.UUID
	PatientNationalID string
	MedicineID        uuid.UUID
	Dosage            string
	Duration          string
	Quantity          int
	Notes             string
}

type ListPrescriptionsQuery struct {
	DoctorID          *uuid.UUID
	PatientNationalID *string
	Status            *PrescriptionStatus
}
