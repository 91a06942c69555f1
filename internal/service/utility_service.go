package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

// PublicUtilitiesLimit caps the links shown on the public site.
const PublicUtilitiesLimit = 6

type utilityRepository interface {
	List(ctx context.Context, activeOnly bool, limit int) ([]models.Utility, error)
	FindByID(ctx context.Context, id string) (*models.Utility, error)
	Create(ctx context.Context, u *models.Utility) error
	Update(ctx context.Context, u *models.Utility) error
	Delete(ctx context.Context, id string) error
}

// UtilityService manages external links.
type UtilityService struct {
	repo      utilityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUtilityService constructs the service.
func NewUtilityService(repo utilityRepository, validate *validator.Validate, logger *zap.Logger) *UtilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UtilityService{repo: repo, validator: validate, logger: logger}
}

// ListActive returns the public links.
func (s *UtilityService) ListActive(ctx context.Context) ([]models.Utility, error) {
	rows, err := s.repo.List(ctx, true, PublicUtilitiesLimit)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list utilities")
	}
	return rows, nil
}

// List returns every utility.
func (s *UtilityService) List(ctx context.Context) ([]models.Utility, error) {
	rows, err := s.repo.List(ctx, false, 0)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list utilities")
	}
	return rows, nil
}

// Create adds a link.
func (s *UtilityService) Create(ctx context.Context, req dto.UtilityRequest) (*models.Utility, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	u := &models.Utility{Name: req.Name, URL: req.URL, Description: trimmedOrNil(req.Description), IsActive: true}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, appErrors.Store(err, "failed to create utility")
	}
	return u, nil
}

// Update edits a link.
func (s *UtilityService) Update(ctx context.Context, id string, req dto.UtilityRequest) (*models.Utility, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "utility not found")
		}
		return nil, appErrors.Store(err, "failed to load utility")
	}
	u.Name = req.Name
	u.URL = req.URL
	u.Description = trimmedOrNil(req.Description)
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "utility not found")
		}
		return nil, appErrors.Store(err, "failed to update utility")
	}
	return u, nil
}

// Delete removes a link.
func (s *UtilityService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "utility not found")
		}
		return appErrors.Store(err, "failed to delete utility")
	}
	return nil
}

func (s *UtilityService) validate(req *dto.UtilityRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return nil
}
