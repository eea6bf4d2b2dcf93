package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecohood/points-ledger/internal/service/redemptions"
	"github.com/ecohood/points-ledger/internal/service/vouchers"
)

// CreateRedemption files a cash-out request. Points leave the balance on completion.
// POST /api/v1/redemptions.
func (h *Handler) CreateRedemption(c *gin.Context) {
	var req redemptions.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	redemption, err := h.redemptions.CreateRedemption(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "create redemption")
		return
	}

	h.success(c, "redemption requested", gin.H{"redemption": redemption})
}

// ListRedemptions returns cash-out requests, optionally filtered by status.
// GET /api/v1/redemptions?status=pending.
func (h *Handler) ListRedemptions(c *gin.Context) {
	requests, err := h.redemptions.ListRedemptions(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.fail(c, err, "list redemptions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redemptions":  requests,
		"total":        len(requests),
		"generated_at": time.Now().UTC(),
	})
}

// GetRedemption returns a single cash-out request.
// GET /api/v1/redemptions/:id.
func (h *Handler) GetRedemption(c *gin.Context) {
	redemptionID, err := h.parseID(c, "id", "redemption")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	redemption, err := h.redemptions.GetRedemption(c.Request.Context(), redemptionID)
	if err != nil {
		h.fail(c, err, "get redemption")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redemption":   redemption,
		"generated_at": time.Now().UTC(),
	})
}

// UpdateRedemptionStatus completes or cancels a pending cash-out request.
// PUT /api/v1/redemptions/:id/status.
func (h *Handler) UpdateRedemptionStatus(c *gin.Context) {
	redemptionID, err := h.parseID(c, "id", "redemption")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	status, ok := h.bindStatus(c)
	if !ok {
		return
	}

	res, err := h.redemptions.UpdateStatus(c.Request.Context(), redemptionID, status)
	if err != nil {
		h.fail(c, err, "update redemption status")
		return
	}

	message := "redemption status updated"
	if !res.Changed {
		message = "redemption status unchanged"
	}
	h.success(c, message, gin.H{"redemption": res.Redemption})
}

// DeleteRedemption removes a cash-out request without touching the ledger.
// DELETE /api/v1/redemptions/:id.
func (h *Handler) DeleteRedemption(c *gin.Context) {
	redemptionID, err := h.parseID(c, "id", "redemption")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.redemptions.DeleteRedemption(c.Request.Context(), redemptionID); err != nil {
		h.fail(c, err, "delete redemption")
		return
	}

	h.success(c, "redemption deleted", nil)
}

// CreateVoucher adds a partner voucher to the catalog.
// POST /api/v1/vouchers.
func (h *Handler) CreateVoucher(c *gin.Context) {
	var req vouchers.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	voucher, err := h.vouchers.CreateVoucher(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "create voucher")
		return
	}

	h.success(c, "voucher created", gin.H{"voucher": voucher})
}

// GetVoucher returns a voucher with its remaining stock.
// GET /api/v1/vouchers/:id.
func (h *Handler) GetVoucher(c *gin.Context) {
	voucherID, err := h.parseID(c, "id", "voucher")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	voucher, err := h.vouchers.GetVoucher(c.Request.Context(), voucherID)
	if err != nil {
		h.fail(c, err, "get voucher")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"voucher":      voucher,
		"generated_at": time.Now().UTC(),
	})
}

// ListVouchers returns vouchers that can currently be redeemed.
// GET /api/v1/vouchers.
func (h *Handler) ListVouchers(c *gin.Context) {
	list, err := h.vouchers.ListVouchers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "list vouchers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vouchers":     list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// RedeemVoucherRequest is the body of a voucher redemption.
type RedeemVoucherRequest struct {
	UserID uint `json:"user_id"`
}

// RedeemVoucher spends points on a voucher.
// POST /api/v1/vouchers/:id/redeem.
func (h *Handler) RedeemVoucher(c *gin.Context) {
	voucherID, err := h.parseID(c, "id", "voucher")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req RedeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "user_id is required")
		return
	}

	redemption, err := h.vouchers.RedeemVoucher(c.Request.Context(), voucherID, req.UserID)
	if err != nil {
		h.fail(c, err, "redeem voucher")
		return
	}

	h.success(c, "voucher redeemed", gin.H{"redemption": redemption})
}

// ProcessVoucherRedemption issues the coupon code of a pending voucher redemption.
// PUT /api/v1/voucher-redemptions/:id/process.
func (h *Handler) ProcessVoucherRedemption(c *gin.Context) {
	redemptionID, err := h.parseID(c, "id", "voucher redemption")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	redemption, err := h.vouchers.ProcessRedemption(c.Request.Context(), redemptionID)
	if err != nil {
		h.fail(c, err, "process voucher redemption")
		return
	}

	h.success(c, "voucher redemption processed", gin.H{"redemption": redemption})
}

// GetUserVoucherRedemptions returns a user's voucher redemptions.
// GET /api/v1/users/:id/voucher-redemptions.
func (h *Handler) GetUserVoucherRedemptions(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.vouchers.ListUserRedemptions(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "list voucher redemptions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"redemptions":  list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}
