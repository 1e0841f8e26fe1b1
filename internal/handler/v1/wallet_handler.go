package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transactionResponse struct {
	TransactionID string         `json:"transaction_id"`
	Type          string         `json:"type"`
	Amount        float64        `json:"amount"`
	Description   string         `json:"description,omitempty"`
	ReferenceID   string         `json:"reference_id,omitempty"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func toTransactionResponse(t *wallet.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID: t.Number,
		Type:          string(t.Type),
		Amount:        money.Float(t.Amount),
		Description:   t.Description,
		ReferenceID:   t.ReferenceID,
		Status:        string(t.Status),
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
	}
}

func (h *Handler) WalletBalance(c *gin.Context) {
	w, err := h.svc.Wallets.MyWallet(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": money.Float(w.Balance), "currency": h.currency})
}

func (h *Handler) Deposit(c *gin.Context) {
	var req depositRequest
	if !bindJSON(c, &req) {
		return
	}

	w, txn, err := h.svc.Wallets.DepositFor(c.Request.Context(), identityFrom(c), req.Amount)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"new_balance":    money.Float(w.Balance),
		"deposited":      money.Float(txn.Amount),
		"transaction_id": txn.Number,
	})
}

// ListTransactions returns the caller's ledger, newest first.
func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.svc.Wallets.TransactionsFor(c.Request.Context(), identityFrom(c), parseQueryInt(c, "limit", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	c.JSON(http.StatusOK, out)
}
