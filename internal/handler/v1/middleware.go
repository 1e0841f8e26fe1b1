package v1

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	identityKey     = "identity"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an id, reusing the caller's if present,
// and puts it on the request context for audit records.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		ctx := service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IPAddress: c.ClientIP(),
			RequestID: id,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("ip", c.ClientIP()),
		}
		if id := identityFrom(c); id != nil {
			fields = append(fields, zap.String("user_id", id.UserID.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlightGauge.Inc()
		defer m.InFlightGauge.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))
	allowAll := slices.Contains(cfg.AllowedOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || slices.Contains(cfg.AllowedOrigins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ipLimiter hands out one token bucket per client IP. Idle buckets are
// dropped on a sweep once the table grows past maxClients.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	maxClients = 10_000
	clientIdle = 10 * time.Minute
)

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{clients: make(map[string]*clientLimiter), limit: limit, burst: burst}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cl, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxClients {
			for k, v := range l.clients {
				if now.Sub(v.lastSeen) > clientIdle {
					delete(l.clients, k)
				}
			}
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

func rateLimit(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}

// RateLimit applies the global per-IP limit.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newIPLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize))
}

// AuthRateLimit is the stricter per-IP limit for credential endpoints.
func AuthRateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	rpm := max(cfg.AuthRequestsPerMinute, 1)
	return rateLimit(newIPLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm))
}

// Authenticate resolves the bearer token into a domain.Identity. A token
// whose role is unknown is rejected, never defaulted.
func Authenticate(jwtManager *auth.JWTManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: "MISSING_TOKEN"})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, auth.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token", Code: code})
			return
		}

		id, err := domain.NewIdentity(claims)
		if err != nil {
			log.Warn("rejected token claims",
				zap.String("user_id", claims.UserID.String()),
				zap.String("role", string(claims.Role)),
				zap.Error(err),
			)
			if errors.Is(err, domain.ErrMissingProfile) {
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "PROFILE_INCOMPLETE"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token", Code: "INVALID_TOKEN"})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole stops the request unless the caller holds one of roles. Admin
// passes wherever pharmacist does.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identityFrom(c)
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		for _, r := range roles {
			if id.Role == r || (r == domain.RolePharmacist && id.Role == domain.RoleAdmin) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
	}
}

func identityFrom(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}
