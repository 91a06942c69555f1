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

type announcementService interface {
	ListLatest(ctx context.Context) ([]models.Announcement, error)
	List(ctx context.Context) ([]models.Announcement, error)
	Create(ctx context.Context, req dto.AnnouncementRequest) (*models.Announcement, error)
	Update(ctx context.Context, id string, req dto.AnnouncementRequest) (*models.Announcement, error)
	Delete(ctx context.Context, id string) error
}

type utilityService interface {
	ListActive(ctx context.Context) ([]models.Utility, error)
	List(ctx context.Context) ([]models.Utility, error)
	Create(ctx context.Context, req dto.UtilityRequest) (*models.Utility, error)
	Update(ctx context.Context, id string, req dto.UtilityRequest) (*models.Utility, error)
	Delete(ctx context.Context, id string) error
}

// ContentHandler serves announcements and utility links.
type ContentHandler struct {
	announcements announcementService
	utilities     utilityService
}

// NewContentHandler constructs ContentHandler.
func NewContentHandler(announcements announcementService, utilities utilityService) *ContentHandler {
	return &ContentHandler{announcements: announcements, utilities: utilities}
}

// LatestAnnouncements godoc
// @Summary Latest public announcements
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *ContentHandler) LatestAnnouncements(c *gin.Context) {
	items, err := h.announcements.ListLatest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListAnnouncements godoc
// @Summary List announcements
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/announcements [get]
func (h *ContentHandler) ListAnnouncements(c *gin.Context) {
	items, err := h.announcements.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateAnnouncement godoc
// @Summary Create announcement
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AnnouncementRequest true "Announcement"
// @Success 201 {object} response.Envelope
// @Router /admin/announcements [post]
func (h *ContentHandler) CreateAnnouncement(c *gin.Context) {
	var req dto.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.announcements.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateAnnouncement godoc
// @Summary Update announcement
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Announcement ID"
// @Param payload body dto.AnnouncementRequest true "Announcement"
// @Success 200 {object} response.Envelope
// @Router /admin/announcements/{id} [put]
func (h *ContentHandler) UpdateAnnouncement(c *gin.Context) {
	var req dto.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.announcements.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteAnnouncement godoc
// @Summary Delete announcement
// @Tags Content
// @Security BearerAuth
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /admin/announcements/{id} [delete]
func (h *ContentHandler) DeleteAnnouncement(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.announcements.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ActiveUtilities godoc
// @Summary Public utility links
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /utilities [get]
func (h *ContentHandler) ActiveUtilities(c *gin.Context) {
	items, err := h.utilities.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListUtilities godoc
// @Summary List utility links
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/utilities [get]
func (h *ContentHandler) ListUtilities(c *gin.Context) {
	items, err := h.utilities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// CreateUtility godoc
// @Summary Create utility link
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UtilityRequest true "Utility"
// @Success 201 {object} response.Envelope
// @Router /admin/utilities [post]
func (h *ContentHandler) CreateUtility(c *gin.Context) {
	var req dto.UtilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.utilities.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateUtility godoc
// @Summary Update utility link
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Utility ID"
// @Param payload body dto.UtilityRequest true "Utility"
// @Success 200 {object} response.Envelope
// @Router /admin/utilities/{id} [put]
func (h *ContentHandler) UpdateUtility(c *gin.Context) {
	var req dto.UtilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.utilities.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteUtility godoc
// @Summary Delete utility link
// @Tags Content
// @Security BearerAuth
// @Param id path string true "Utility ID"
// @Success 204
// @Router /admin/utilities/{id} [delete]
func (h *ContentHandler) DeleteUtility(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.utilities.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
