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

// LatestAnnouncementsLimit is how many notices the landing page shows.
const LatestAnnouncementsLimit = 3

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, validator: validate, logger: logger}
}

// ListLatest returns the newest active announcements for the public site.
func (s *AnnouncementService) ListLatest(ctx context.Context) ([]models.Announcement, error) {
	rows, err := s.repo.List(ctx, models.AnnouncementFilter{ActiveOnly: true, Limit: LatestAnnouncementsLimit})
	if err != nil {
		return nil, appErrors.Store(err, "failed to list announcements")
	}
	return rows, nil
}

// List returns every announcement newest first.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	rows, err := s.repo.List(ctx, models.AnnouncementFilter{})
	if err != nil {
		return nil, appErrors.Store(err, "failed to list announcements")
	}
	return rows, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Store(err, "failed to get announcement")
	}
	return ann, nil
}

// Create registers a new announcement. New announcements are active unless
// stated otherwise.
func (s *AnnouncementService) Create(ctx context.Context, req dto.AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	announcement := &models.Announcement{Title: req.Title, Content: req.Content, IsActive: true}
	if req.IsActive != nil {
		announcement.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Store(err, "failed to create announcement")
	}
	return announcement, nil
}

// Update modifies an existing announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req dto.AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Title = req.Title
	existing.Content = req.Content
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Store(err, "failed to update announcement")
	}
	return existing, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Store(err, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) validate(req *dto.AnnouncementRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return nil
}
