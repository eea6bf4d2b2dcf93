package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecohood/points-ledger/internal/models"
	"github.com/ecohood/points-ledger/internal/service/ledger"
)

// PointsRequest is the body of grant and deduct calls.
type PointsRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// GrantPoints adds points to a user's balance.
// POST /api/v1/users/:id/points/grant.
func (h *Handler) GrantPoints(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.ledger.Grant(c.Request.Context(), nil, ledger.Entry{
		UserID:     userID,
		Points:     req.Points,
		Reason:     req.Reason,
		SourceType: models.SourceAdmin,
	})
	if err != nil {
		h.fail(c, err, "grant points")
		return
	}

	h.success(c, "points granted", gin.H{
		"points":  m.Applied,
		"balance": m.BalanceAfter,
	})
}

// DeductPoints removes points from a user's balance, never going below zero.
// POST /api/v1/users/:id/points/deduct.
func (h *Handler) DeductPoints(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.ledger.Deduct(c.Request.Context(), userID, req.Points, req.Reason)
	if err != nil {
		h.fail(c, err, "deduct points")
		return
	}

	message := "points deducted"
	switch {
	case m.Applied == 0:
		message = "nothing deducted; balance is empty"
	case m.Applied < m.Requested:
		message = "points deducted; amount limited to the available balance"
	}
	h.success(c, message, gin.H{
		"requested": m.Requested,
		"points":    m.Applied,
		"balance":   m.BalanceAfter,
	})
}

// GetBalance returns a user's current balance.
// GET /api/v1/users/:id/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "get balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"balance":      balance,
		"generated_at": time.Now().UTC(),
	})
}

// GetPointsLog returns a user's ledger history, newest first.
// GET /api/v1/users/:id/points/log?limit=50.
func (h *Handler) GetPointsLog(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := h.parseLimit(c, 50)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.ledger.GetPointsLog(c.Request.Context(), userID, limit)
	if err != nil {
		h.fail(c, err, "get points log")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       userID,
		"entries":       entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetNotifications returns a user's notification inbox.
// GET /api/v1/users/:id/notifications?limit=20.
func (h *Handler) GetNotifications(c *gin.Context) {
	if h.inbox == nil {
		h.errorResponse(c, http.StatusNotFound, "notification inbox is not enabled")
		return
	}

	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := h.parseLimit(c, 20)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	notifications, err := h.inbox.List(c.Request.Context(), userID, int64(limit))
	if err != nil {
		h.fail(c, err, "get notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       userID,
		"notifications": notifications,
		"generated_at":  time.Now().UTC(),
	})
}
