package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createMedicineRequest struct {
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Manufacturer string          `json:"manufacturer"`
	BatchNumber  string          `json:"batch_number"`
	ExpiryDate   string          `json:"expiry_date"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Notes        string          `json:"notes"`
}

// updateMedicineRequest mirrors createMedicineRequest with every field
// optional; absent keys decode to nil and are left untouched.
type updateMedicineRequest struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Manufacturer *string          `json:"manufacturer"`
	BatchNumber  *string          `json:"batch_number"`
	ExpiryDate   *string          `json:"expiry_date"`
	Price        *decimal.Decimal `json:"price"`
	Stock        *int             `json:"stock"`
	Notes        *string          `json:"notes"`
}

type medicineResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	BatchNumber  string    `json:"batch_number,omitempty"`
	ExpiryDate   string    `json:"expiry_date,omitempty"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMedicineResponse(m *medicine.Medicine) medicineResponse {
	resp := medicineResponse{
		ID:           m.ID.String(),
		Name:         m.Name,
		Category:     m.Category,
		Manufacturer: m.Manufacturer,
		BatchNumber:  m.BatchNumber,
		Price:        money.Float(m.Price),
		Stock:        m.Stock,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ExpiryDate != nil {
		resp.ExpiryDate = m.ExpiryDate.Format(time.DateOnly)
	}
	return resp
}

func parseExpiry(c *gin.Context, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

func (h *Handler) ListMedicines(c *gin.Context) {
	meds, err := h.svc.Medicines.ListMedicines(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]medicineResponse, 0, len(meds))
	for _, m := range meds {
		out = append(out, toMedicineResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetMedicine(c *gin.Context) {
	medicineID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.Medicines.GetMedicine(c.Request.Context(), identityFrom(c), medicineID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMedicineResponse(m))
}

func (h *Handler) CreateMedicine(c *gin.Context) {
	var req createMedicineRequest
	if !bindJSON(c, &req) {
		return
	}
	expiry, ok := parseExpiry(c, req.ExpiryDate)
	if !ok {
		return
	}

	m, err := h.svc.Medicines.CreateMedicine(c.Request.Context(), identityFrom(c), &medicine.CreateMedicineCommand{
		Name:         req.Name,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		BatchNumber:  req.BatchNumber,
		ExpiryDate:   expiry,
		Price:        req.Price,
		Stock:        req.Stock,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMedicineResponse(m))
}

func (h *Handler) UpdateMedicine(c *gin.Context) {
	medicineID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateMedicineRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &medicine.UpdateMedicineCommand{
		Name:         req.Name,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		BatchNumber:  req.BatchNumber,
		Price:        req.Price,
		Stock:        req.Stock,
		Notes:        req.Notes,
	}
	if req.ExpiryDate != nil {
		if cmd.ExpiryDate, ok = parseExpiry(c, *req.ExpiryDate); !ok {
			return
		}
	}

	m, err := h.svc.Medicines.UpdateMedicine(c.Request.Context(), identityFrom(c), medicineID, cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMedicineResponse(m))
}

func (h *Handler) DeleteMedicine(c *gin.Context) {
	medicineID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Medicines.DeleteMedicine(c.Request.Context(), identityFrom(c), medicineID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.svc.Medicines.ListAlerts(c.Request.Context(), identityFrom(c), parseQueryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, gin.H{
			"id":          a.ID.String(),
			"medicine_id": a.MedicineID.String(),
			"type":        a.Type,
			"message":     a.Message,
			"created_at":  a.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
