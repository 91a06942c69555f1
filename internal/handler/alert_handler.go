package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type expiryAlertService interface {
	Current(ctx context.Context) (*models.ExpiryClassification, error)
	Refresh(ctx context.Context) (*models.ExpiryClassification, error)
}

// AlertHandler serves the expired and expiring-soon buckets.
type AlertHandler struct {
	alerts expiryAlertService
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(alerts expiryAlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Expiry godoc
// @Summary Current expiry alerts
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/alerts/expiry [get]
func (h *AlertHandler) Expiry(c *gin.Context) {
	result, err := h.alerts.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"expired":       len(result.Expired),
		"expiring_soon": len(result.ExpiringSoon),
	})
}

// Refresh godoc
// @Summary Recompute expiry alerts now
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/alerts/expiry/refresh [post]
func (h *AlertHandler) Refresh(c *gin.Context) {
	result, err := h.alerts.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
