package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type verificationService interface {
	Verify(ctx context.Context, registrationID, actor string) (*models.RegistrationVerification, error)
	Restore(ctx context.Context, registrationID, actor string) (*models.RegistrationVerification, error)
	ListByRegistrations(ctx context.Context, ids []string) (map[string]models.RegistrationVerification, error)
	VerifiedAmount(ctx context.Context) (decimal.Decimal, error)
}

// VerificationHandler exposes the fee reconciliation ledger.
type VerificationHandler struct {
	verifications verificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verifications verificationService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

// Verify godoc
// @Summary Mark a registration's fee as verified
// @Tags Verifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/registrations/{id}/verify [post]
func (h *VerificationHandler) Verify(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	row, err := h.verifications.Verify(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Unverify godoc
// @Summary Undo a verification
// @Tags Verifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/{id}/unverify [post]
func (h *VerificationHandler) Unverify(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	row, err := h.verifications.Restore(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// List godoc
// @Summary Ledger rows for a set of registrations
// @Tags Verifications
// @Produce json
// @Security BearerAuth
// @Param ids query string true "Comma separated registration ids"
// @Success 200 {object} response.Envelope
// @Router /admin/verifications [get]
func (h *VerificationHandler) List(c *gin.Context) {
	ids := splitIDs(c.Query("ids"))
	if len(ids) == 0 {
		response.Error(c, appErrors.Validation("ids query parameter is required"))
		return
	}
	rows, err := h.verifications.ListByRegistrations(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Summary godoc
// @Summary Total verified amount
// @Tags Verifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/verifications/summary [get]
func (h *VerificationHandler) Summary(c *gin.Context) {
	total, err := h.verifications.VerifiedAmount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"verified_amount": total}, nil)
}
