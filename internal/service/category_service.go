package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/storage"
)

const (
	activeCategoriesCacheKey = "sep:categories:active"
	jobCardCategoryName      = "job card"
)

type categoryStore interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	SetActive(ctx context.Context, id string, active bool) error
	SetQRCodeURL(ctx context.Context, id, url string) error
}

// CategoryServiceConfig tunes caching and uploads.
type CategoryServiceConfig struct {
	CacheTTL      time.Duration
	QRMaxFileSize int64
}

// CategoryService manages the fee-bearing category catalog.
type CategoryService struct {
	repo      categoryStore
	cache     keyValueCache
	objects   storage.ObjectStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       CategoryServiceConfig
	now       func() time.Time
}

// NewCategoryService constructs the service. cache and objects may be nil.
func NewCategoryService(repo categoryStore, cache keyValueCache, objects storage.ObjectStore, validate *validator.Validate, logger *zap.Logger, cfg CategoryServiceConfig) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.QRMaxFileSize <= 0 {
		cfg.QRMaxFileSize = 2 << 20
	}
	return &CategoryService{
		repo:      repo,
		cache:     cache,
		objects:   objects,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListActive returns the public catalog ordered by English name.
func (s *CategoryService) ListActive(ctx context.Context) ([]models.CategoryView, error) {
	var categories []models.Category
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, activeCategoriesCacheKey, &categories); err == nil && hit {
			return s.views(categories), nil
		}
	}
	categories, err := s.repo.List(ctx, models.CategoryFilter{ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Store(err, "failed to list categories")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, activeCategoriesCacheKey, categories, s.cfg.CacheTTL)
	}
	return s.views(categories), nil
}

// ListAll returns every category including inactive ones.
func (s *CategoryService) ListAll(ctx context.Context) ([]models.CategoryView, error) {
	categories, err := s.repo.List(ctx, models.CategoryFilter{})
	if err != nil {
		return nil, appErrors.Store(err, "failed to list categories")
	}
	return s.views(categories), nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.CategoryView, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.NewCategoryView(*category, s.now())
	return &view, nil
}

// FindJobCard returns the active job card category advertised on the landing page.
func (s *CategoryService) FindJobCard(ctx context.Context) (*models.CategoryView, error) {
	categories, err := s.repo.List(ctx, models.CategoryFilter{ActiveOnly: true, NameLike: jobCardCategoryName})
	if err != nil {
		return nil, appErrors.Store(err, "failed to find job card category")
	}
	if len(categories) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job card category not found")
	}
	view := models.NewCategoryView(categories[0], s.now())
	return &view, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, req dto.CategoryRequest) (*models.CategoryView, error) {
	category := &models.Category{IsActive: true}
	if err := s.apply(category, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Store(err, "failed to create category")
	}
	s.invalidate(ctx)
	return s.Get(ctx, category.ID)
}

// Update replaces the editable fields of a category. Existing registrations
// keep the fee they were created with.
func (s *CategoryService) Update(ctx context.Context, id string, req dto.CategoryRequest) (*models.CategoryView, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(category, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Store(err, "failed to update category")
	}
	s.invalidate(ctx)
	return s.Get(ctx, category.ID)
}

// SetActive enables or disables a category. Categories are never hard deleted.
func (s *CategoryService) SetActive(ctx context.Context, id string, active bool) (*models.CategoryView, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Store(err, "failed to update category")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// UploadQR stores the payment QR image of a category and records its URL.
func (s *CategoryService) UploadQR(ctx context.Context, id string, data []byte) (*models.CategoryView, error) {
	if s.objects == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "object storage is not configured")
	}
	if len(data) == 0 {
		return nil, appErrors.Validation("QR image is required")
	}
	if int64(len(data)) > s.cfg.QRMaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("QR image must be at most %d bytes", s.cfg.QRMaxFileSize))
	}
	contentType := http.DetectContentType(data)
	if contentType != "image/png" && contentType != "image/jpeg" {
		return nil, appErrors.Validation("QR image must be a PNG or JPEG file")
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	url, err := s.objects.Put(ctx, id+"/payment-qr.png", contentType, data)
	if err != nil {
		s.logger.Error("failed to upload category QR", zap.String("category_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upload QR image")
	}
	if err := s.repo.SetQRCodeURL(ctx, id, url); err != nil {
		return nil, appErrors.Store(err, "failed to save QR url")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *CategoryService) apply(category *models.Category, req dto.CategoryRequest) error {
	req.NameEnglish = strings.TrimSpace(req.NameEnglish)
	req.NameMalayalam = strings.TrimSpace(req.NameMalayalam)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if req.ActualFee.IsNegative() || req.OfferFee.IsNegative() {
		return appErrors.Validation("fees must not be negative")
	}
	if req.OfferStartDate != nil && req.OfferEndDate != nil && req.OfferStartDate.After(*req.OfferEndDate) {
		return appErrors.Validation("offer start date must not be after offer end date")
	}

	category.NameEnglish = req.NameEnglish
	category.NameMalayalam = req.NameMalayalam
	category.Description = trimmedOrNil(req.Description)
	category.ActualFee = req.ActualFee
	category.OfferFee = req.OfferFee
	category.OfferStartDate = req.OfferStartDate
	category.OfferEndDate = req.OfferEndDate
	if req.ExpiryDays != nil {
		days := *req.ExpiryDays
		category.ExpiryDays = &days
	} else if category.ExpiryDays == nil {
		days := models.DefaultExpiryDays
		category.ExpiryDays = &days
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	return nil
}

func (s *CategoryService) find(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Store(err, "failed to load category")
	}
	return category, nil
}

func (s *CategoryService) views(categories []models.Category) []models.CategoryView {
	now := s.now()
	out := make([]models.CategoryView, 0, len(categories))
	for _, c := range categories {
		out = append(out, models.NewCategoryView(c, now))
	}
	return out
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remove(ctx, activeCategoriesCacheKey); err != nil {
		s.logger.Warn("failed to invalidate category cache", zap.Error(err))
	}
}
