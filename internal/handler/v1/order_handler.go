package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	PrescriptionID string `json:"prescription_id"`
}

type createOrderResponse struct {
	OK             bool    `json:"ok"`
	OrderID        string  `json:"order_id"`
	PrescriptionID string  `json:"prescription_id"`
	TotalAmount    float64 `json:"total_amount"`
	WalletBalance  float64 `json:"wallet_balance"`
	Status         string  `json:"status"`
	TransactionID  string  `json:"transaction_id"`
}

type orderItemResponse struct {
	MedicineID   string  `json:"medicine_id"`
	MedicineName string  `json:"medicine_name"`
	Quantity     int     `json:"quantity"`
	PriceAtTime  float64 `json:"price_at_time"`
	LineTotal    float64 `json:"line_total"`
}

type orderPrescriptionResponse struct {
	PrescriptionID string `json:"prescription_id"`
	MedicineName   string `json:"medicine_name"`
	Quantity       int    `json:"quantity"`
	DoctorName     string `json:"doctor_name"`
}

type orderResponse struct {
	OrderID        string                     `json:"order_id"`
	PatientID      string                     `json:"patient_id"`
	PrescriptionID string                     `json:"prescription_id,omitempty"`
	Prescription   *orderPrescriptionResponse `json:"prescription"`
	TotalAmount    float64                    `json:"total_amount"`
	Status         string                     `json:"status"`
	Items          []orderItemResponse        `json:"items"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func toOrderResponse(v *service.OrderView) orderResponse {
	o := v.Order
	items := make([]orderItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, orderItemResponse{
			MedicineID:   it.MedicineID.String(),
			MedicineName: it.MedicineName,
			Quantity:     it.Quantity,
			PriceAtTime:  money.Float(it.PriceAtTime),
			LineTotal:    money.Float(it.LineTotal()),
		})
	}
	resp := orderResponse{
		OrderID:     o.Number,
		PatientID:   o.PatientID.String(),
		TotalAmount: money.Float(o.TotalAmount),
		Status:      string(o.Status),
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
	if p := v.Prescription; p != nil {
		resp.PrescriptionID = p.Number
		resp.Prescription = &orderPrescriptionResponse{
			PrescriptionID: p.Number,
			MedicineName:   p.MedicineName,
			Quantity:       p.Quantity,
			DoctorName:     p.DoctorName,
		}
	}
	return resp
}

// CreateOrder fulfills the caller's prescription against their wallet.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Orders.FulfillPrescription(c.Request.Context(), identityFrom(c), req.PrescriptionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createOrderResponse{
		OK:             true,
		OrderID:        res.Order.Number,
		PrescriptionID: res.Prescription.Number,
		TotalAmount:    money.Float(res.Order.TotalAmount),
		WalletBalance:  money.Float(res.WalletBalance),
		Status:         string(res.Order.Status),
		TransactionID:  res.TransactionNumber,
	})
}

func (h *Handler) ListOrders(c *gin.Context) {
	views, err := h.svc.Orders.ListOrders(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toOrderResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetOrder(c *gin.Context) {
	v, err := h.svc.Orders.GetOrder(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(v))
}
