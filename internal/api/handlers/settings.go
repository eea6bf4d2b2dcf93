package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecohood/points-ledger/internal/service/settings"
)

// GetPointSettings returns the current point rates and cash-out rules.
// GET /api/v1/settings/points.
func (h *Handler) GetPointSettings(c *gin.Context) {
	current, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err, "get point settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": current})
}

// UpdatePointSettings changes the fields present in the body.
// PUT /api/v1/settings/points.
func (h *Handler) UpdatePointSettings(c *gin.Context) {
	var req settings.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "update point settings")
		return
	}

	h.success(c, "settings updated", gin.H{"settings": updated})
}
