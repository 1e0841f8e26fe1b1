package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Services struct {
	Auth          *service.AuthService
	Medicines     *service.MedicineService
	Prescriptions *service.PrescriptionService
	Orders        *service.OrderService
	Wallets       *service.WalletService
	Reports       *service.ReportService
}

type RouterDeps struct {
	Config   *config.Config
	Services Services
	JWT      *auth.JWTManager
	Metrics  *metrics.Collector
	Log      *zap.Logger
	// Health reports whether the backing store is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Handler holds the services behind every v1 endpoint.
type Handler struct {
	svc      Services
	currency string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{svc: deps.Services, currency: cfg.Pharmacy.Currency}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(deps.Log),
		Metrics(deps.Metrics),
		CORS(cfg.CORS),
	)

	r.GET("/health", healthHandler(deps.Health))
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api", RateLimit(cfg.RateLimit))

	public := api.Group("", AuthRateLimit(cfg.RateLimit))
	public.POST("/signup", h.Signup)
	public.POST("/login", h.Login)
	public.POST("/token/refresh", h.Refresh)

	authed := api.Group("", Authenticate(deps.JWT, deps.Log))

	staff := RequireRole(domain.RolePharmacist)
	patient := RequireRole(domain.RolePatient)

	authed.POST("/mfa/enroll", RequireRole(domain.RoleDoctor, domain.RolePharmacist), h.EnrollMFA)
	authed.POST("/mfa/confirm", RequireRole(domain.RoleDoctor, domain.RolePharmacist), h.ConfirmMFA)
	authed.GET("/users", staff, h.ListUsers)

	authed.GET("/medicines", h.ListMedicines)
	authed.POST("/medicines", staff, h.CreateMedicine)
	authed.GET("/medicines/:id", h.GetMedicine)
	authed.PUT("/medicines/:id", staff, h.UpdateMedicine)
	authed.PATCH("/medicines/:id", staff, h.UpdateMedicine)
	authed.DELETE("/medicines/:id", staff, h.DeleteMedicine)
	authed.GET("/alerts", staff, h.ListAlerts)

	authed.GET("/prescriptions", h.ListPrescriptions)
	authed.POST("/prescriptions", RequireRole(domain.RoleDoctor), h.CreatePrescription)
	authed.GET("/prescriptions/patient", patient, h.ListPatientPrescriptions)
	authed.POST("/prescriptions/:id/cancel", h.CancelPrescription)

	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.POST("/orders/create", patient, h.CreateOrder)

	authed.GET("/wallet/balance", patient, h.WalletBalance)
	authed.POST("/wallet/deposit", patient, h.Deposit)
	authed.GET("/wallet/transactions", patient, h.ListTransactions)

	authed.GET("/reports/revenue", staff, h.Revenue)
	authed.GET("/patient/stats", patient, h.PatientStats)

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
