package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type registrationService interface {
	Create(ctx context.Context, req dto.CreateRegistrationRequest) (*models.RegistrationDetail, error)
	Get(ctx context.Context, id string) (*models.RegistrationDetail, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error)
	CheckStatus(ctx context.Context, query string) (*models.StatusCheckResult, error)
	Update(ctx context.Context, id string, req dto.UpdateRegistrationRequest) (*models.RegistrationDetail, error)
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, id, actor string) (*models.RegistrationDetail, error)
	BulkApprove(ctx context.Context, ids []string, actor string) (*dto.BulkApproveResponse, error)
	Reject(ctx context.Context, id string) (*models.RegistrationDetail, error)
	RestoreToPending(ctx context.Context, id string) (*models.RegistrationDetail, error)
}

// RegistrationHandler exposes citizen submission and admin lifecycle endpoints.
type RegistrationHandler struct {
	registrations registrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registrations registrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Create godoc
// @Summary Submit a registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.CreateRegistrationRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req dto.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.registrations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// CheckStatus godoc
// @Summary Check registration status
// @Description Look up a registration by mobile number or customer id
// @Tags Registrations
// @Produce json
// @Param q query string true "Mobile number or customer id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/status [get]
func (h *RegistrationHandler) CheckStatus(c *gin.Context) {
	result, err := h.registrations.CheckStatus(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name, mobile or customer id"
// @Param status query string false "pending, approved or rejected"
// @Param category_id query string false "Filter by category"
// @Param panchayath_id query string false "Filter by panchayath"
// @Param expiring_within_days query int false "Pending rows with at most N days left (0 = expired)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RegistrationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		s := models.RegistrationStatus(status)
		if !s.Valid() {
			response.Error(c, appErrors.Validation("invalid status filter"))
			return
		}
		filter.Status = &s
	}
	filter.CategoryID = c.Query("category_id")
	filter.PanchayathID = c.Query("panchayath_id")
	if raw := c.Query("expiring_within_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			response.Error(c, appErrors.Validation("expiring_within_days must be a non-negative integer"))
			return
		}
		filter.ExpiringWithinDays = &days
	}
	filter.Page = queryInt(c, "page", 1)
	filter.PageSize = queryInt(c, "limit", 20)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	items, pagination, err := h.registrations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get registration detail
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	registration, err := h.registrations.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Update godoc
// @Summary Edit registration
// @Tags Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param payload body dto.UpdateRegistrationRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/{id} [put]
func (h *RegistrationHandler) Update(c *gin.Context) {
	var req dto.UpdateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	registration, err := h.registrations.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Delete godoc
// @Summary Delete registration
// @Tags Registrations
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 204
// @Router /admin/registrations/{id} [delete]
func (h *RegistrationHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.registrations.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a pending registration
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	registration, err := h.registrations.Approve(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// BulkApprove godoc
// @Summary Approve several pending registrations
// @Tags Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkApproveRequest true "Registration ids"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/bulk-approve [post]
func (h *RegistrationHandler) BulkApprove(c *gin.Context) {
	var req dto.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := requireUUIDs("ids", req.IDs); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.registrations.BulkApprove(c.Request.Context(), req.IDs, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a registration
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/{id}/reject [post]
func (h *RegistrationHandler) Reject(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	registration, err := h.registrations.Reject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}

// Restore godoc
// @Summary Move a registration back to pending
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /admin/registrations/{id}/restore [post]
func (h *RegistrationHandler) Restore(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	registration, err := h.registrations.RestoreToPending(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registration, nil)
}
