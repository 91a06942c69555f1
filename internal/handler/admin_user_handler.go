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

type adminUserService interface {
	List(ctx context.Context, search string) ([]dto.AdminUserResponse, error)
	ListPermissions(ctx context.Context) ([]models.AdminPermission, error)
	Get(ctx context.Context, id string) (*dto.AdminUserResponse, error)
	Create(ctx context.Context, req dto.CreateAdminUserRequest, actor string) (*dto.AdminUserResponse, error)
	Update(ctx context.Context, id string, req dto.UpdateAdminUserRequest, actor string) (*dto.AdminUserResponse, error)
	Delete(ctx context.Context, id string, session *models.AdminSession) error
	ReplacePermissions(ctx context.Context, id string, names []string, actor string) (*dto.AdminUserResponse, error)
}

// AdminUserHandler manages back-office accounts.
type AdminUserHandler struct {
	users adminUserService
}

// NewAdminUserHandler constructs AdminUserHandler.
func NewAdminUserHandler(users adminUserService) *AdminUserHandler {
	return &AdminUserHandler{users: users}
}

// List godoc
// @Summary List admin users
// @Tags AdminUsers
// @Produce json
// @Security BearerAuth
// @Param search query string false "Username or full name"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminUserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Permissions godoc
// @Summary List grantable permissions
// @Tags AdminUsers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/permissions [get]
func (h *AdminUserHandler) Permissions(c *gin.Context) {
	perms, err := h.users.ListPermissions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// Get godoc
// @Summary Get admin user
// @Tags AdminUsers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin user ID"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{id} [get]
func (h *AdminUserHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create admin user
// @Tags AdminUsers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAdminUserRequest true "Admin user"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *AdminUserHandler) Create(c *gin.Context) {
	var req dto.CreateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.users.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update admin user
// @Tags AdminUsers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin user ID"
// @Param payload body dto.UpdateAdminUserRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users/{id} [put]
func (h *AdminUserHandler) Update(c *gin.Context) {
	var req dto.UpdateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.users.Update(c.Request.Context(), id, req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete admin user
// @Tags AdminUsers
// @Security BearerAuth
// @Param id path string true "Admin user ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /admin/users/{id} [delete]
func (h *AdminUserHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), id, sessionFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReplacePermissions godoc
// @Summary Replace granted permissions
// @Tags AdminUsers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin user ID"
// @Param payload body dto.ReplacePermissionsRequest true "Permission names"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{id}/permissions [put]
func (h *AdminUserHandler) ReplacePermissions(c *gin.Context) {
	var req dto.ReplacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.users.ReplacePermissions(c.Request.Context(), id, req.Permissions, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
