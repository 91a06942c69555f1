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
	"github.com/noah-isme/sep-portal-api/pkg/database"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type panchayathStore interface {
	List(ctx context.Context, activeOnly bool) ([]models.Panchayath, error)
	FindByID(ctx context.Context, id string) (*models.Panchayath, error)
	Create(ctx context.Context, p *models.Panchayath) error
	Update(ctx context.Context, p *models.Panchayath) error
	SetActive(ctx context.Context, id string, active bool) error
}

// PanchayathService maintains the local government directory.
type PanchayathService struct {
	repo      panchayathStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPanchayathService constructs the service.
func NewPanchayathService(repo panchayathStore, validate *validator.Validate, logger *zap.Logger) *PanchayathService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanchayathService{repo: repo, validator: validate, logger: logger}
}

// ListActive returns the panchayaths offered on the registration form.
func (s *PanchayathService) ListActive(ctx context.Context) ([]models.Panchayath, error) {
	return s.list(ctx, true)
}

// ListAll returns every panchayath.
func (s *PanchayathService) ListAll(ctx context.Context) ([]models.Panchayath, error) {
	return s.list(ctx, false)
}

func (s *PanchayathService) list(ctx context.Context, activeOnly bool) ([]models.Panchayath, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list panchayaths")
	}
	return rows, nil
}

// Create adds a panchayath.
func (s *PanchayathService) Create(ctx context.Context, req dto.PanchayathRequest) (*models.Panchayath, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	p := &models.Panchayath{Name: req.Name, District: req.District, IsActive: true}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "panchayath already exists in this district")
		}
		return nil, appErrors.Store(err, "failed to create panchayath")
	}
	return p, nil
}

// Update edits name, district and active flag.
func (s *PanchayathService) Update(ctx context.Context, id string, req dto.PanchayathRequest) (*models.Panchayath, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = req.Name
	p.District = req.District
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "panchayath not found")
		}
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "panchayath already exists in this district")
		}
		return nil, appErrors.Store(err, "failed to update panchayath")
	}
	return p, nil
}

// SetActive toggles a panchayath without deleting it.
func (s *PanchayathService) SetActive(ctx context.Context, id string, active bool) (*models.Panchayath, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "panchayath not found")
		}
		return nil, appErrors.Store(err, "failed to update panchayath")
	}
	return s.find(ctx, id)
}

func (s *PanchayathService) find(ctx context.Context, id string) (*models.Panchayath, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "panchayath not found")
		}
		return nil, appErrors.Store(err, "failed to load panchayath")
	}
	return p, nil
}

func (s *PanchayathService) validate(req *dto.PanchayathRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.District = strings.TrimSpace(req.District)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid panchayath payload")
	}
	return nil
}
