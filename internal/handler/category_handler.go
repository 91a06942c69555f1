package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

const qrFormField = "file"

type categoryService interface {
	ListActive(ctx context.Context) ([]models.CategoryView, error)
	ListAll(ctx context.Context) ([]models.CategoryView, error)
	Get(ctx context.Context, id string) (*models.CategoryView, error)
	FindJobCard(ctx context.Context) (*models.CategoryView, error)
	Create(ctx context.Context, req dto.CategoryRequest) (*models.CategoryView, error)
	Update(ctx context.Context, id string, req dto.CategoryRequest) (*models.CategoryView, error)
	SetActive(ctx context.Context, id string, active bool) (*models.CategoryView, error)
	UploadQR(ctx context.Context, id string, data []byte) (*models.CategoryView, error)
}

// CategoryHandler exposes the self-employment category catalog.
type CategoryHandler struct {
	categories    categoryService
	maxUploadSize int64
}

// NewCategoryHandler constructs CategoryHandler. maxUploadSize caps the QR
// upload body before it is buffered.
func NewCategoryHandler(categories categoryService, maxUploadSize int64) *CategoryHandler {
	return &CategoryHandler{categories: categories, maxUploadSize: maxUploadSize}
}

// ListActive godoc
// @Summary List active categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) ListActive(c *gin.Context) {
	categories, err := h.categories.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// JobCard godoc
// @Summary Job card category
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/job-card [get]
func (h *CategoryHandler) JobCard(c *gin.Context) {
	category, err := h.categories.FindJobCard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// ListAll godoc
// @Summary List all categories
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/categories [get]
func (h *CategoryHandler) ListAll(c *gin.Context) {
	categories, err := h.categories.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Get godoc
// @Summary Get category
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /admin/categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	category, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Create godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body dto.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	category, err := h.categories.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// SetActive godoc
// @Summary Enable or disable category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body dto.SetActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /admin/categories/{id}/active [patch]
func (h *CategoryHandler) SetActive(c *gin.Context) {
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
	category, err := h.categories.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// UploadQR godoc
// @Summary Upload payment QR image
// @Tags Categories
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param file formData file true "PNG or JPEG image"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /admin/categories/{id}/qr [post]
func (h *CategoryHandler) UploadQR(c *gin.Context) {
	if h.maxUploadSize > 0 {
		// multipart framing needs some headroom over the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+64*1024)
	}
	header, err := c.FormFile(qrFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "QR image file is required"))
		return
	}
	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "QR image is too large"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read QR image"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read QR image"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	category, err := h.categories.UploadQR(c.Request.Context(), id, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}
