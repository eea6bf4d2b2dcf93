package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecohood/points-ledger/internal/service/donations"
	"github.com/ecohood/points-ledger/internal/service/pickups"
)

// StatusRequest is the body of every status update.
type StatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) bindStatus(c *gin.Context) (string, bool) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		h.errorResponse(c, http.StatusBadRequest, "status is required")
		return "", false
	}
	return req.Status, true
}

// CreatePickup schedules a waste pickup.
// POST /api/v1/pickups.
func (h *Handler) CreatePickup(c *gin.Context) {
	var req pickups.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	pickup, err := h.pickups.CreatePickup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "create pickup")
		return
	}

	h.success(c, "pickup scheduled", gin.H{"pickup": pickup})
}

// GetPickup returns a pickup with its items.
// GET /api/v1/pickups/:id.
func (h *Handler) GetPickup(c *gin.Context) {
	pickupID, err := h.parseID(c, "id", "pickup")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	pickup, err := h.pickups.GetPickup(c.Request.Context(), pickupID)
	if err != nil {
		h.fail(c, err, "get pickup")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pickup":       pickup,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserPickups returns a user's pickups.
// GET /api/v1/users/:id/pickups.
func (h *Handler) GetUserPickups(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.pickups.ListUserPickups(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "list pickups")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"pickups":      list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// UpdatePickupStatus moves a pickup to a new status. Completion awards points.
// PUT /api/v1/pickups/:id/status.
func (h *Handler) UpdatePickupStatus(c *gin.Context) {
	pickupID, err := h.parseID(c, "id", "pickup")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	status, ok := h.bindStatus(c)
	if !ok {
		return
	}

	res, err := h.pickups.UpdateStatus(c.Request.Context(), pickupID, status)
	if err != nil {
		h.fail(c, err, "update pickup status")
		return
	}

	message := "pickup status updated"
	if !res.Changed {
		message = "pickup status unchanged"
	}
	h.success(c, message, gin.H{
		"pickup":         res.Pickup,
		"points_awarded": res.PointsAwarded,
	})
}

// CreateDonation records a donation offer.
// POST /api/v1/donations.
func (h *Handler) CreateDonation(c *gin.Context) {
	var req donations.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	donation, err := h.donations.CreateDonation(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "create donation")
		return
	}

	h.success(c, "donation recorded", gin.H{"donation": donation})
}

// GetDonation returns a donation.
// GET /api/v1/donations/:id.
func (h *Handler) GetDonation(c *gin.Context) {
	donationID, err := h.parseID(c, "id", "donation")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	donation, err := h.donations.GetDonation(c.Request.Context(), donationID)
	if err != nil {
		h.fail(c, err, "get donation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"donation":     donation,
		"generated_at": time.Now().UTC(),
	})
}

// UpdateDonationStatus moves a donation to a new status. The first approval awards points.
// PUT /api/v1/donations/:id/status.
func (h *Handler) UpdateDonationStatus(c *gin.Context) {
	donationID, err := h.parseID(c, "id", "donation")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	status, ok := h.bindStatus(c)
	if !ok {
		return
	}

	res, err := h.donations.UpdateStatus(c.Request.Context(), donationID, status)
	if err != nil {
		h.fail(c, err, "update donation status")
		return
	}

	message := "donation status updated"
	if !res.Changed {
		message = "donation status unchanged"
	}
	h.success(c, message, gin.H{
		"donation":       res.Donation,
		"points_awarded": res.PointsAwarded,
	})
}
