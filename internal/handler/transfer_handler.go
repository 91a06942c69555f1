package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type transferService interface {
	Request(ctx context.Context, registrationID string, payload dto.TransferRequestPayload) (*models.CategoryTransferRequest, error)
	Approve(ctx context.Context, requestID, actor string) (*models.CategoryTransferRequest, error)
	Reject(ctx context.Context, requestID, actor string) (*models.CategoryTransferRequest, error)
	List(ctx context.Context, filter models.TransferFilter) ([]models.TransferRequestView, error)
}

// TransferHandler exposes category transfer requests.
type TransferHandler struct {
	transfers transferService
}

// NewTransferHandler constructs TransferHandler.
func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// Request godoc
// @Summary Request a category transfer
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.TransferRequestPayload true "Target category"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/transfer-requests [post]
func (h *TransferHandler) Request(c *gin.Context) {
	var req dto.TransferRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.transfers.Request(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List transfer requests
// @Tags Transfers
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param registration_id query string false "Filter by registration"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /admin/transfer-requests [get]
func (h *TransferHandler) List(c *gin.Context) {
	filter := models.TransferFilter{
		RegistrationID: c.Query("registration_id"),
		Limit:          queryInt(c, "limit", 100),
		Offset:         queryInt(c, "offset", 0),
	}
	if raw := strings.ToLower(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.TransferStatus(raw)
		switch status {
		case models.TransferPending, models.TransferApproved, models.TransferRejected:
			filter.Status = &status
		default:
			response.Error(c, appErrors.Validation("invalid status filter"))
			return
		}
	}
	items, err := h.transfers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Approve godoc
// @Summary Approve a transfer request
// @Description Moves the registration to the target category and re-snapshots its fee
// @Tags Transfers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transfer request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/transfer-requests/{id}/approve [post]
func (h *TransferHandler) Approve(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.transfers.Approve(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a transfer request
// @Tags Transfers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transfer request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/transfer-requests/{id}/reject [post]
func (h *TransferHandler) Reject(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.transfers.Reject(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
