package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/gin-gonic/gin"
)

func (h *Handler) Revenue(c *gin.Context) {
	rev, err := h.svc.Reports.Revenue(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_revenue":       money.Float(rev.TotalRevenue),
		"orders_count":        rev.OrdersCount,
		"average_order_value": money.Float(rev.AverageOrderValue()),
		"currency":            h.currency,
	})
}

func (h *Handler) PatientStats(c *gin.Context) {
	stats, err := h.svc.Reports.PatientStats(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet_balance":       money.Float(stats.WalletBalance),
		"active_prescriptions": stats.ActivePrescriptions,
		"total_orders":         stats.TotalOrders,
		"pending_orders":       stats.PendingOrders,
		"total_spent":          money.Float(stats.TotalSpent),
		"currency":             h.currency,
	})
}
