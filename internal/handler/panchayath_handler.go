package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

type panchayathService interface {
	ListActive(ctx context.Context) ([]models.Panchayath, error)
	ListAll(ctx context.Context) ([]models.Panchayath, error)
	Create(ctx context.Context, req dto.PanchayathRequest) (*models.Panchayath, error)
	Update(ctx context.Context, id string, req dto.PanchayathRequest) (*models.Panchayath, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Panchayath, error)
}

// PanchayathHandler exposes local-body endpoints.
type PanchayathHandler struct {
	panchayaths panchayathService
}

// NewPanchayathHandler constructs PanchayathHandler.
func NewPanchayathHandler(panchayaths panchayathService) *PanchayathHandler {
	return &PanchayathHandler{panchayaths: panchayaths}
}

// ListActive godoc
// @Summary List active panchayaths
// @Tags Panchayaths
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /panchayaths [get]
func (h *PanchayathHandler) ListActive(c *gin.Context) {
	items, err := h.panchayaths.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListAll godoc
// @Summary List all panchayaths
// @Tags Panchayaths
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/panchayaths [get]
func (h *PanchayathHandler) ListAll(c *gin.Context) {
	items, err := h.panchayaths.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create panchayath
// @Tags Panchayaths
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PanchayathRequest true "Panchayath payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/panchayaths [post]
func (h *PanchayathHandler) Create(c *gin.Context) {
	var req dto.PanchayathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.panchayaths.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update panchayath
// @Tags Panchayaths
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Panchayath ID"
// @Param payload body dto.PanchayathRequest true "Panchayath payload"
// @Success 200 {object} response.Envelope
// @Router /admin/panchayaths/{id} [put]
func (h *PanchayathHandler) Update(c *gin.Context) {
	var req dto.PanchayathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.panchayaths.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// SetActive godoc
// @Summary Enable or disable panchayath
// @Tags Panchayaths
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Panchayath ID"
// @Param payload body dto.SetActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /admin/panchayaths/{id}/active [patch]
func (h *PanchayathHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "is_active is required"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.panchayaths.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
