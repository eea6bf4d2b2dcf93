// Package handlers provides the REST API of the points ledger.
//
// Mutating endpoints answer {"success": bool, "message": string} plus operation data.
// Validation failures map to 400, unknown entities to 404, business-rule rejections to
// 409 and anything else to 500 with a generic message.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecohood/points-ledger/internal/apperrors"
	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/internal/service/donations"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/internal/service/pickups"
	"github.com/ecohood/points-ledger/internal/service/redemptions"
	"github.com/ecohood/points-ledger/internal/service/settings"
	"github.com/ecohood/points-ledger/internal/service/vouchers"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// genericFailure is the only detail clients see for infrastructure errors.
const genericFailure = "could not complete the action"

// LedgerService interface for balance operations.
type LedgerService interface {
	Grant(ctx context.Context, tx *repository.DB, e ledger.Entry) (*ledger.Movement, error)
	Deduct(ctx context.Context, userID uint, points int64, reason string) (*ledger.Movement, error)
	GetBalance(ctx context.Context, userID uint) (int64, error)
	GetPointsLog(ctx context.Context, userID uint, limit int) ([]models.PointsLogEntry, error)
}

// BadgeService interface for badge operations.
type BadgeService interface {
	CreateBadge(ctx context.Context, badge *models.Badge) error
	GrantBadge(ctx context.Context, userID, badgeID uint, grantedBy *uint) (*models.UserBadge, error)
	RevokeBadge(ctx context.Context, userID, badgeID uint) error
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	GetBadgeCatalog(ctx context.Context) ([]models.Badge, error)
	GetBadgeHoldersCount(ctx context.Context, badgeID uint) (int64, error)
}

// PickupService interface for pickup operations.
type PickupService interface {
	CreatePickup(ctx context.Context, req pickups.CreateRequest) (*models.Pickup, error)
	UpdateStatus(ctx context.Context, pickupID uint, status string) (*pickups.Result, error)
	GetPickup(ctx context.Context, pickupID uint) (*models.Pickup, error)
	ListUserPickups(ctx context.Context, userID uint) ([]models.Pickup, error)
}

// DonationService interface for donation operations.
type DonationService interface {
	CreateDonation(ctx context.Context, req donations.CreateRequest) (*models.Donation, error)
	UpdateStatus(ctx context.Context, donationID uint, status string) (*donations.Result, error)
	GetDonation(ctx context.Context, donationID uint) (*models.Donation, error)
}

// RedemptionService interface for cash-out operations.
type RedemptionService interface {
	CreateRedemption(ctx context.Context, req redemptions.CreateRequest) (*models.RedemptionRequest, error)
	UpdateStatus(ctx context.Context, redemptionID uint, status string) (*redemptions.Result, error)
	DeleteRedemption(ctx context.Context, redemptionID uint) error
	ListRedemptions(ctx context.Context, status string) ([]models.RedemptionRequest, error)
	GetRedemption(ctx context.Context, redemptionID uint) (*models.RedemptionRequest, error)
}

// VoucherService interface for voucher operations.
type VoucherService interface {
	CreateVoucher(ctx context.Context, req vouchers.CreateRequest) (*models.Voucher, error)
	ListVouchers(ctx context.Context) ([]models.Voucher, error)
	GetVoucher(ctx context.Context, voucherID uint) (*models.Voucher, error)
	RedeemVoucher(ctx context.Context, voucherID, userID uint) (*models.VoucherRedemption, error)
	ProcessRedemption(ctx context.Context, redemptionID uint) (*models.VoucherRedemption, error)
	ListUserRedemptions(ctx context.Context, userID uint) ([]models.VoucherRedemption, error)
}

// SettingsService interface for point settings.
type SettingsService interface {
	Get(ctx context.Context) (*models.PointSettings, error)
	Update(ctx context.Context, u settings.Update) (*models.PointSettings, error)
}

// InboxReader reads stored user notifications.
type InboxReader interface {
	List(ctx context.Context, userID uint, limit int64) ([]notify.Notification, error)
}

// Services groups the dependencies of Handler. Inbox may be nil.
type Services struct {
	Ledger      LedgerService
	Badges      BadgeService
	Pickups     PickupService
	Donations   DonationService
	Redemptions RedemptionService
	Vouchers    VoucherService
	Settings    SettingsService
	Inbox       InboxReader
}

// Handler handles points ledger API requests.
type Handler struct {
	ledger      LedgerService
	badges      BadgeService
	pickups     PickupService
	donations   DonationService
	redemptions RedemptionService
	vouchers    VoucherService
	settings    SettingsService
	inbox       InboxReader
	log         *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s Services, log *logger.Logger) *Handler {
	return &Handler{
		ledger:      s.Ledger,
		badges:      s.Badges,
		pickups:     s.Pickups,
		donations:   s.Donations,
		redemptions: s.Redemptions,
		vouchers:    s.Vouchers,
		settings:    s.Settings,
		inbox:       s.Inbox,
		log:         log.Component("api"),
	}
}

// Helper functions

// parseID extracts and validates a numeric URL parameter.
func (h *Handler) parseID(c *gin.Context, param, label string) (uint, error) {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", label, idStr)
	}
	return uint(id), nil
}

// parseUserID extracts and validates the user ID from the URL parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	return h.parseID(c, "id", "user")
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}

	return limit, nil
}

// actorID returns the optional X-Admin-ID header of the staff member making the call.
func actorID(c *gin.Context) *uint {
	raw := c.GetHeader("X-Admin-ID")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

// success sends a {"success": true} response merged with extra fields.
func (h *Handler) success(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail maps a service error to a status code and sends it.
func (h *Handler) fail(c *gin.Context, err error, action string) {
	switch {
	case apperrors.IsValidation(err):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	case apperrors.IsNotFound(err):
		h.errorResponse(c, http.StatusNotFound, err.Error())
	case apperrors.IsPrecondition(err):
		h.errorResponse(c, http.StatusConflict, err.Error())
	default:
		h.log.Error().
			Err(err).
			Str("action", action).
			Str("path", c.FullPath()).
			Msg("Request failed")
		h.errorResponse(c, http.StatusInternalServerError, genericFailure)
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
