package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecohood/points-ledger/pkg/logger"
)

// HealthCheck reports the health of a backing dependency.
type HealthCheck func(ctx context.Context) error

// RouterOptions configures NewRouter.
type RouterOptions struct {
	MetricsEnabled bool
	MetricsPath    string
	// Checks are run by /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter registers all API routes on a new gin engine.
func NewRouter(h *Handler, opts RouterOptions, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log.Component("http")))

	router.GET("/health", healthHandler(opts.Checks))
	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	h.RegisterRoutes(api)

	return router
}

// RegisterRoutes attaches the ledger endpoints to a router group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	users := api.Group("/users/:id")
	users.POST("/points/grant", h.GrantPoints)
	users.POST("/points/deduct", h.DeductPoints)
	users.GET("/points/log", h.GetPointsLog)
	users.GET("/balance", h.GetBalance)
	users.GET("/badges", h.GetUserBadges)
	users.POST("/badges", h.GrantBadge)
	users.DELETE("/badges/:badgeId", h.RevokeBadge)
	users.GET("/notifications", h.GetNotifications)
	users.GET("/pickups", h.GetUserPickups)
	users.GET("/voucher-redemptions", h.GetUserVoucherRedemptions)

	api.GET("/badges", h.GetBadgeCatalog)
	api.POST("/badges", h.CreateBadge)
	api.GET("/badges/:id/holders", h.GetBadgeHolders)

	api.POST("/pickups", h.CreatePickup)
	api.GET("/pickups/:id", h.GetPickup)
	api.PUT("/pickups/:id/status", h.UpdatePickupStatus)

	api.POST("/donations", h.CreateDonation)
	api.GET("/donations/:id", h.GetDonation)
	api.PUT("/donations/:id/status", h.UpdateDonationStatus)

	api.POST("/redemptions", h.CreateRedemption)
	api.GET("/redemptions", h.ListRedemptions)
	api.GET("/redemptions/:id", h.GetRedemption)
	api.PUT("/redemptions/:id/status", h.UpdateRedemptionStatus)
	api.DELETE("/redemptions/:id", h.DeleteRedemption)

	api.POST("/vouchers", h.CreateVoucher)
	api.GET("/vouchers", h.ListVouchers)
	api.GET("/vouchers/:id", h.GetVoucher)
	api.POST("/vouchers/:id/redeem", h.RedeemVoucher)
	api.PUT("/voucher-redemptions/:id/process", h.ProcessVoucherRedemption)

	api.GET("/settings/points", h.GetPointSettings)
	api.PUT("/settings/points", h.UpdatePointSettings)
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an ID and logs it once it completes.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}
