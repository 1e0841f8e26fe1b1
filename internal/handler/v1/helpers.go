package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/wallet"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/money"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// FundsErrorResponse carries the numbers a patient needs to top up.
type FundsErrorResponse struct {
	Error     string  `json:"error"`
	Required  float64 `json:"required"`
	Available float64 `json:"available"`
	Shortage  float64 `json:"shortage"`
}

type StockErrorResponse struct {
	Error     string `json:"error"`
	Available int    `json:"available"`
	Requested int    `json:"requested,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var fundsErr *wallet.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		c.JSON(http.StatusBadRequest, FundsErrorResponse{
			Error:     fundsErr.Error(),
			Required:  money.Float(fundsErr.Required),
			Available: money.Float(fundsErr.Available),
			Shortage:  money.Float(fundsErr.Shortage()),
		})
		return
	}

	var stockErr *medicine.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusBadRequest, StockErrorResponse{
			Error:     stockErr.Error(),
			Available: stockErr.Available,
			Requested: stockErr.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, medicine.ErrMedicineNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, wallet.ErrWalletNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, prescription.ErrInvalidState),
		errors.Is(err, medicine.ErrMedicineInUse),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, service.ErrMFANotEnrolled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, wallet.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, domain.ErrMissingProfile):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "PROFILE_INCOMPLETE"})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "ACCOUNT_INACTIVE"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrOTPRequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "OTP_REQUIRED"})

	case errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "OTP_INVALID"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
