package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/database"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type adminUserStore interface {
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
	PermissionNames(ctx context.Context, adminID string) ([]string, error)
	List(ctx context.Context, search string) ([]models.AdminUser, error)
	ListPermissions(ctx context.Context) ([]models.AdminPermission, error)
	Create(ctx context.Context, user *models.AdminUser, permissionIDs []string, grantedBy string) error
	Update(ctx context.Context, user *models.AdminUser) error
	Delete(ctx context.Context, id string) error
	ReplacePermissions(ctx context.Context, adminID string, permissionIDs []string, grantedBy string) error
}

type permissionInvalidator interface {
	InvalidatePermissions(ctx context.Context, adminID string)
}

// AdminUserService manages back-office accounts and their grants.
type AdminUserService struct {
	repo           adminUserStore
	sessions       permissionInvalidator
	bootstrapAdmin string
	validator      *validator.Validate
	logger         *zap.Logger
	hashCost       int
}

// NewAdminUserService constructs the service. bootstrapAdmin names the
// account that can never be deleted or deactivated.
func NewAdminUserService(repo adminUserStore, sessions permissionInvalidator, bootstrapAdmin string, validate *validator.Validate, logger *zap.Logger) *AdminUserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminUserService{
		repo:           repo,
		sessions:       sessions,
		bootstrapAdmin: strings.TrimSpace(bootstrapAdmin),
		validator:      validate,
		logger:         logger,
		hashCost:       bcrypt.DefaultCost,
	}
}

// List returns admins with their granted permission names.
func (s *AdminUserService) List(ctx context.Context, search string) ([]dto.AdminUserResponse, error) {
	users, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list admin users")
	}
	out := make([]dto.AdminUserResponse, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range users {
		i := i
		g.Go(func() error {
			perms, err := s.repo.PermissionNames(gctx, users[i].ID)
			if err != nil {
				return err
			}
			out[i] = s.toResponse(&users[i], perms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Store(err, "failed to load admin permissions")
	}
	return out, nil
}

// ListPermissions returns the grantable permission catalog.
func (s *AdminUserService) ListPermissions(ctx context.Context) ([]models.AdminPermission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list permissions")
	}
	return perms, nil
}

// Get returns one admin.
func (s *AdminUserService) Get(ctx context.Context, id string) (*dto.AdminUserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.PermissionNames(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load admin permissions")
	}
	resp := s.toResponse(user, perms)
	return &resp, nil
}

// Create adds an admin with an initial grant set.
func (s *AdminUserService) Create(ctx context.Context, req dto.CreateAdminUserRequest, actor string) (*dto.AdminUserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin user payload")
	}
	permissionIDs, err := s.resolvePermissions(ctx, req.Permissions)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.AdminUser{
		Username:     strings.ToLower(req.Username),
		FullName:     req.FullName,
		Email:        trimmedOrNil(req.Email),
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedBy:    trimmedOrNil(&actor),
	}
	if err := s.repo.Create(ctx, user, permissionIDs, actor); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
		}
		return nil, appErrors.Store(err, "failed to create admin user")
	}
	s.logger.Info("admin user created", zap.String("username", user.Username), zap.String("by", actor))
	return s.Get(ctx, user.ID)
}

// Update edits profile fields, the active flag and optionally the password.
func (s *AdminUserService) Update(ctx context.Context, id string, req dto.UpdateAdminUserRequest, actor string) (*dto.AdminUserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin user payload")
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive && s.isProtected(user) {
		return nil, appErrors.Clone(appErrors.ErrProtectedAccount, "the bootstrap admin cannot be deactivated")
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		user.Email = trimmedOrNil(req.Email)
	}
	deactivated := false
	if req.IsActive != nil {
		deactivated = user.IsActive && !*req.IsActive
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.hashCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admin user not found")
		}
		return nil, appErrors.Store(err, "failed to update admin user")
	}
	if deactivated {
		s.invalidate(ctx, user.ID)
	}
	s.logger.Info("admin user updated", zap.String("username", user.Username), zap.String("by", actor))
	return s.Get(ctx, user.ID)
}

// Delete removes an admin. The bootstrap admin and the caller's own account
// cannot be removed.
func (s *AdminUserService) Delete(ctx context.Context, id string, session *models.AdminSession) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if s.isProtected(user) {
		return appErrors.Clone(appErrors.ErrProtectedAccount, "the bootstrap admin cannot be deleted")
	}
	if session != nil && session.AdminID == user.ID {
		return appErrors.Validation("you cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "admin user not found")
		}
		return appErrors.Store(err, "failed to delete admin user")
	}
	s.invalidate(ctx, user.ID)
	s.logger.Info("admin user deleted", zap.String("username", user.Username), zap.String("by", session.Actor()))
	return nil
}

// ReplacePermissions swaps the full grant set of an admin.
func (s *AdminUserService) ReplacePermissions(ctx context.Context, id string, names []string, actor string) (*dto.AdminUserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	permissionIDs, err := s.resolvePermissions(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplacePermissions(ctx, user.ID, permissionIDs, actor); err != nil {
		return nil, appErrors.Store(err, "failed to update permissions")
	}
	s.invalidate(ctx, user.ID)
	s.logger.Info("admin permissions replaced", zap.String("username", user.Username), zap.Int("count", len(permissionIDs)), zap.String("by", actor))
	return s.Get(ctx, user.ID)
}

func (s *AdminUserService) resolvePermissions(ctx context.Context, names []string) ([]string, error) {
	names = uniqueStrings(names)
	if len(names) == 0 {
		return nil, nil
	}
	catalog, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list permissions")
	}
	byName := make(map[string]string, len(catalog))
	for _, p := range catalog {
		byName[p.Name] = p.ID
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			return nil, appErrors.Validation("unknown permission: " + name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *AdminUserService) find(ctx context.Context, id string) (*models.AdminUser, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admin user not found")
		}
		return nil, appErrors.Store(err, "failed to load admin user")
	}
	return user, nil
}

func (s *AdminUserService) invalidate(ctx context.Context, adminID string) {
	if s.sessions != nil {
		s.sessions.InvalidatePermissions(ctx, adminID)
	}
}

func (s *AdminUserService) isProtected(user *models.AdminUser) bool {
	return s.bootstrapAdmin != "" && strings.EqualFold(user.Username, s.bootstrapAdmin)
}

func (s *AdminUserService) toResponse(user *models.AdminUser, perms []string) dto.AdminUserResponse {
	if perms == nil {
		perms = []string{}
	}
	var lastLogin *string
	if user.LastLogin != nil {
		v := user.LastLogin.UTC().Format(time.RFC3339)
		lastLogin = &v
	}
	return dto.AdminUserResponse{
		ID:          user.ID,
		Username:    user.Username,
		FullName:    user.FullName,
		Email:       user.Email,
		IsActive:    user.IsActive || s.isProtected(user),
		LastLogin:   lastLogin,
		Protected:   s.isProtected(user),
		Permissions: perms,
	}
}
