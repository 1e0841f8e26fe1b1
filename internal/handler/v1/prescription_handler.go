package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createPrescriptionRequest struct {
	PatientNationalID string    `json:"patient_national_id"`
	MedicineID        uuid.UUID `json:"medicine_id"`
	Dosage            string    `json:"dosage"`
	Duration          string    `json:"duration"`
	Quantity          int       `json:"quantity"`
	Notes             string    `json:"notes"`
}

type prescriptionResponse struct {
	ID                string    `json:"id"`
	PrescriptionID    string    `json:"prescription_id"`
	DoctorID          string    `json:"doctor_id"`
	PatientNationalID string    `json:"patient_national_id"`
	MedicineID        string    `json:"medicine_id"`
	Dosage            string    `json:"dosage,omitempty"`
	Duration          string    `json:"duration,omitempty"`
	Quantity          int       `json:"quantity"`
	Notes             string    `json:"notes,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toPrescriptionResponse(p *prescription.Prescription) prescriptionResponse {
	return prescriptionResponse{
		ID:                p.ID.String(),
		PrescriptionID:    p.Number,
		DoctorID:          p.DoctorID.String(),
		PatientNationalID: p.PatientNationalID,
		MedicineID:        p.MedicineID.String(),
		Dosage:            p.Dosage,
		Duration:          p.Duration,
		Quantity:          p.Quantity,
		Notes:             p.Notes,
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

type patientPrescriptionResponse struct {
	prescriptionResponse
	MedicineName  string  `json:"medicine_name"`
	Price         float64 `json:"price"`
	TotalPrice    float64 `json:"total_price"`
	MedicineStock int     `json:"medicine_stock"`
	CanOrder      bool    `json:"can_order"`
}

func toPatientPrescriptionResponse(v *service.PatientPrescription) patientPrescriptionResponse {
	return patientPrescriptionResponse{
		prescriptionResponse: toPrescriptionResponse(v.Prescription),
		MedicineName:         v.MedicineName,
		Price:                money.Float(v.UnitPrice),
		TotalPrice:           money.Float(v.TotalPrice),
		MedicineStock:        v.MedicineStock,
		CanOrder:             v.CanOrder,
	}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req createPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	id := identityFrom(c)
	p, err := h.svc.Prescriptions.CreatePrescription(c.Request.Context(), id, &prescription.CreatePrescriptionCommand{
		DoctorID:          id.UserID,
		PatientNationalID: req.PatientNationalID,
		MedicineID:        req.MedicineID,
		Dosage:            req.Dosage,
		Duration:          req.Duration,
		Quantity:          req.Quantity,
		Notes:             req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "prescription": toPrescriptionResponse(p)})
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	items, err := h.svc.Prescriptions.ListPrescriptions(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]prescriptionResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toPrescriptionResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListPatientPrescriptions(c *gin.Context) {
	items, err := h.svc.Prescriptions.ListPatientActivePrescriptions(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]patientPrescriptionResponse, 0, len(items))
	for _, v := range items {
		out = append(out, toPatientPrescriptionResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CancelPrescription(c *gin.Context) {
	prescriptionID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Prescriptions.CancelPrescription(c.Request.Context(), identityFrom(c), prescriptionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "prescription": toPrescriptionResponse(p)})
}
