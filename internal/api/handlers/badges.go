package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecohood/points-ledger/internal/models"
)

// GrantBadgeRequest is the body of a badge grant.
type GrantBadgeRequest struct {
	BadgeID uint `json:"badge_id"`
}

// GrantBadge gives a badge to a user.
// POST /api/v1/users/:id/badges.
func (h *Handler) GrantBadge(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req GrantBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BadgeID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "badge_id is required")
		return
	}

	userBadge, err := h.badges.GrantBadge(c.Request.Context(), userID, req.BadgeID, actorID(c))
	if err != nil {
		h.fail(c, err, "grant badge")
		return
	}

	h.success(c, "badge granted", gin.H{"user_badge": userBadge})
}

// RevokeBadge removes a badge from a user.
// DELETE /api/v1/users/:id/badges/:badgeId.
func (h *Handler) RevokeBadge(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	badgeID, err := h.parseID(c, "badgeId", "badge")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.badges.RevokeBadge(c.Request.Context(), userID, badgeID); err != nil {
		h.fail(c, err, "revoke badge")
		return
	}

	h.success(c, "badge revoked", nil)
}

// GetUserBadges returns badges held by a specific user.
// GET /api/v1/users/:id/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userBadges, err := h.badges.GetUserBadges(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "get user badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalogBadges, err := h.badges.GetBadgeCatalog(c.Request.Context())
	if err != nil {
		h.fail(c, err, "get badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalogBadges,
		"total_badges": len(catalogBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeHolders returns how many users hold a badge.
// GET /api/v1/badges/:id/holders.
func (h *Handler) GetBadgeHolders(c *gin.Context) {
	badgeID, err := h.parseID(c, "id", "badge")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	holders, err := h.badges.GetBadgeHoldersCount(c.Request.Context(), badgeID)
	if err != nil {
		h.fail(c, err, "get badge holders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badge_id":     badgeID,
		"holders":      holders,
		"generated_at": time.Now().UTC(),
	})
}

// CreateBadgeRequest is the body of a new badge.
type CreateBadgeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CreateBadge adds a badge to the catalog.
// POST /api/v1/badges.
func (h *Handler) CreateBadge(c *gin.Context) {
	var req CreateBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	badge := &models.Badge{Name: req.Name, Description: req.Description, Icon: req.Icon}
	if err := h.badges.CreateBadge(c.Request.Context(), badge); err != nil {
		h.fail(c, err, "create badge")
		return
	}

	h.success(c, "badge created", gin.H{"badge": badge})
}
