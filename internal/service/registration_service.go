package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/database"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

type registrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Registration, error)
	GetDetail(ctx context.Context, id string) (*models.RegistrationDetail, error)
	FindByMobileOrCustomerID(ctx context.Context, q string) (*models.RegistrationDetail, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	Update(ctx context.Context, reg *models.Registration) error
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, params models.ApproveParams) (bool, error)
	BulkApprove(ctx context.Context, params models.BulkApproveParams) (int64, bool, error)
	Reject(ctx context.Context, id string, at time.Time) (bool, error)
	Restore(ctx context.Context, id string, from models.RegistrationStatus, at time.Time) (bool, error)
}

type categoryLookup interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Category, error)
}

type pendingTransferLookup interface {
	FindPendingByRegistration(ctx context.Context, registrationID string) (*models.CategoryTransferRequest, error)
}

// RegistrationService owns citizen submissions and every status transition.
type RegistrationService struct {
	repo       registrationStore
	categories categoryLookup
	transfers  pendingTransferLookup
	events     EventPublisher
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// RegistrationOption customises the service.
type RegistrationOption func(*RegistrationService)

// WithRegistrationClock overrides the time source.
func WithRegistrationClock(now func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRegistrationMetrics records transitions.
func WithRegistrationMetrics(m *MetricsService) RegistrationOption {
	return func(s *RegistrationService) { s.metrics = m }
}

// NewRegistrationService constructs the service.
func NewRegistrationService(repo registrationStore, categories categoryLookup, transfers pendingTransferLookup, events EventPublisher, validate *validator.Validate, logger *zap.Logger, opts ...RegistrationOption) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RegistrationService{
		repo:       repo,
		categories: categories,
		transfers:  transfers,
		events:     publisherOrNoop(events),
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a citizen submission as pending with the category's
// chargeable fee snapshotted.
func (s *RegistrationService) Create(ctx context.Context, req dto.CreateRegistrationRequest) (*models.RegistrationDetail, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	category, err := s.activeCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if req.PreferenceCategoryID != nil && *req.PreferenceCategoryID != "" {
		if _, err := s.activeCategory(ctx, *req.PreferenceCategoryID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	reg := &models.Registration{
		CustomerID:           GenerateCustomerID(req.MobileNumber, req.FullName),
		FullName:             req.FullName,
		MobileNumber:         req.MobileNumber,
		Address:              strings.TrimSpace(req.Address),
		Ward:                 strings.TrimSpace(req.Ward),
		Agent:                trimmedOrNil(req.Agent),
		CategoryID:           category.ID,
		PreferenceCategoryID: trimmedOrNil(req.PreferenceCategoryID),
		PanchayathID:         trimmedOrNil(req.PanchayathID),
		Fee:                  category.ChargeableFee(),
		Status:               models.RegistrationPending,
		CreatedAt:            now,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a registration already exists for this mobile number and name")
		}
		if database.IsForeignKeyViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "referenced panchayath or category not found")
		}
		return nil, appErrors.Store(err, "failed to create registration")
	}

	s.events.Publish(registrationEvent(realtime.EventRegistrationCreated, reg.ID, nil))
	return s.detail(ctx, reg.ID)
}

// Get returns one registration with display names.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	return s.detail(ctx, id)
}

// List returns a filtered page of registrations.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Validation("unknown registration status")
	}
	if filter.ExpiringWithinDays != nil && *filter.ExpiringWithinDays < 0 {
		return nil, nil, appErrors.Validation("expiring_within_days must not be negative")
	}
	if filter.Now.IsZero() {
		filter.Now = s.now()
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list registrations")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// CheckStatus finds the newest registration for a mobile number or customer
// id, for the public status page.
func (s *RegistrationService) CheckStatus(ctx context.Context, query string) (*models.StatusCheckResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.Validation("mobile number or customer id is required")
	}
	detail, err := s.repo.FindByMobileOrCustomerID(ctx, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no registration found for this mobile number or customer id")
		}
		return nil, appErrors.Store(err, "failed to check registration status")
	}
	result := &models.StatusCheckResult{Registration: *detail, StatusLabel: detail.Status.Label()}
	if s.transfers != nil {
		pending, err := s.transfers.FindPendingByRegistration(ctx, detail.ID)
		switch {
		case err == nil:
			result.PendingTransfer = pending
		case !errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("failed to load pending transfer for status check", zap.String("registration_id", detail.ID), zap.Error(err))
		}
	}
	return result, nil
}

// Update applies an admin edit. Changing the category re-snapshots the fee
// unless a fee is supplied explicitly.
func (s *RegistrationService) Update(ctx context.Context, id string, req dto.UpdateRegistrationRequest) (*models.RegistrationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		reg.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.MobileNumber != nil {
		reg.MobileNumber = strings.TrimSpace(*req.MobileNumber)
	}
	if req.Address != nil {
		reg.Address = strings.TrimSpace(*req.Address)
	}
	if req.Ward != nil {
		reg.Ward = strings.TrimSpace(*req.Ward)
	}
	if req.Agent != nil {
		reg.Agent = trimmedOrNil(req.Agent)
	}
	if req.PreferenceCategoryID != nil {
		reg.PreferenceCategoryID = trimmedOrNil(req.PreferenceCategoryID)
	}
	if req.PanchayathID != nil {
		reg.PanchayathID = trimmedOrNil(req.PanchayathID)
	}
	if req.CategoryID != nil && *req.CategoryID != reg.CategoryID {
		category, err := s.category(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		reg.CategoryID = category.ID
		reg.Fee = category.ChargeableFee()
	}
	if req.Fee != nil {
		if req.Fee.IsNegative() {
			return nil, appErrors.Validation("fee must not be negative")
		}
		reg.Fee = *req.Fee
	}
	if reg.FullName == "" {
		return nil, appErrors.Validation("full name is required")
	}

	if err := s.repo.Update(ctx, reg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "another registration already uses this customer id")
		}
		return nil, appErrors.Store(err, "failed to update registration")
	}
	s.events.Publish(registrationEvent(realtime.EventRegistrationUpdated, reg.ID, nil))
	return s.detail(ctx, reg.ID)
}

// Delete removes a registration.
func (s *RegistrationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Store(err, "failed to delete registration")
	}
	s.events.Publish(registrationEvent(realtime.EventRegistrationDeleted, id, nil))
	return nil
}

// Approve moves a pending registration to approved, stamping approver and
// date and computing expiry when none is stored.
func (s *RegistrationService) Approve(ctx context.Context, id, actor string) (*models.RegistrationDetail, error) {
	const action = "approve"
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, s.fail(action, appErrors.Validation("acting admin is required"))
	}
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if !canTransition(reg.Status, models.RegistrationApproved) {
		return nil, s.fail(action, appErrors.Validation("only pending registrations can be approved"))
	}

	category, err := s.optionalCategory(ctx, reg.CategoryID)
	if err != nil {
		return nil, s.fail(action, err)
	}
	now := s.now()
	ok, err := s.repo.Approve(ctx, models.ApproveParams{
		ID:         reg.ID,
		ApprovedAt: now,
		ApprovedBy: actor,
		ExpiryDate: ComputeExpiry(category, now),
	})
	if err != nil {
		return nil, s.fail(action, appErrors.Store(err, "failed to approve registration"))
	}
	if !ok {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrConflict, "registration status changed, please reload"))
	}

	s.succeed(action)
	s.events.Publish(registrationEvent(realtime.EventRegistrationApproved, reg.ID, map[string]string{"approved_by": actor}))
	return s.detail(ctx, reg.ID)
}

// BulkApprove approves every id with one shared approval date. Either all
// rows move or none do.
func (s *RegistrationService) BulkApprove(ctx context.Context, ids []string, actor string) (*dto.BulkApproveResponse, error) {
	const action = "bulk_approve"
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, s.fail(action, appErrors.Validation("acting admin is required"))
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil, s.fail(action, appErrors.Validation("at least one registration id is required"))
	}

	regs, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.fail(action, appErrors.Store(err, "failed to load registrations"))
	}
	if len(regs) != len(ids) {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrNotFound, "one or more registrations were not found"))
	}
	categoryIDs := make([]string, 0, len(regs))
	for _, reg := range regs {
		if !canTransition(reg.Status, models.RegistrationApproved) {
			return nil, s.fail(action, appErrors.Validation("only pending registrations can be approved"))
		}
		categoryIDs = append(categoryIDs, reg.CategoryID)
	}
	categories, err := s.categoryMap(ctx, uniqueStrings(categoryIDs))
	if err != nil {
		return nil, s.fail(action, err)
	}

	now := s.now()
	expiries := make(map[string]time.Time, len(regs))
	for _, reg := range regs {
		var category *models.Category
		if c, ok := categories[reg.CategoryID]; ok {
			category = &c
		}
		expiries[reg.ID] = ComputeExpiry(category, now)
	}

	_, applied, err := s.repo.BulkApprove(ctx, models.BulkApproveParams{IDs: ids, ApprovedAt: now, ApprovedBy: actor, ExpiryDates: expiries})
	if err != nil {
		return nil, s.fail(action, appErrors.Store(err, "failed to approve registrations"))
	}
	if !applied {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrConflict, "some registrations changed status, nothing was approved"))
	}

	s.succeed(action)
	for _, id := range ids {
		s.events.Publish(registrationEvent(realtime.EventRegistrationApproved, id, map[string]string{"approved_by": actor}))
	}
	return &dto.BulkApproveResponse{Approved: len(ids), ApprovedAt: now.Format(time.RFC3339), ApprovedBy: actor}, nil
}

// Reject moves a pending registration to rejected. Expiry is left untouched.
func (s *RegistrationService) Reject(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	const action = "reject"
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if !canTransition(reg.Status, models.RegistrationRejected) {
		return nil, s.fail(action, appErrors.Validation("only pending registrations can be rejected"))
	}
	ok, err := s.repo.Reject(ctx, reg.ID, s.now())
	if err != nil {
		return nil, s.fail(action, appErrors.Store(err, "failed to reject registration"))
	}
	if !ok {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrConflict, "registration status changed, please reload"))
	}
	s.succeed(action)
	s.events.Publish(registrationEvent(realtime.EventRegistrationRejected, reg.ID, nil))
	return s.detail(ctx, reg.ID)
}

// RestoreToPending returns an approved or rejected registration to pending
// and clears its approval stamp. The expiry date is kept.
func (s *RegistrationService) RestoreToPending(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	const action = "restore"
	reg, err := s.find(ctx, id)
	if err != nil {
		return nil, s.fail(action, err)
	}
	if !canTransition(reg.Status, models.RegistrationPending) {
		return nil, s.fail(action, appErrors.Validation("only approved or rejected registrations can be restored"))
	}
	ok, err := s.repo.Restore(ctx, reg.ID, reg.Status, s.now())
	if err != nil {
		return nil, s.fail(action, appErrors.Store(err, "failed to restore registration"))
	}
	if !ok {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrConflict, "registration status changed, please reload"))
	}
	s.succeed(action)
	s.events.Publish(registrationEvent(realtime.EventRegistrationRestored, reg.ID, map[string]string{"from": string(reg.Status)}))
	return s.detail(ctx, reg.ID)
}

func (s *RegistrationService) find(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	return reg, nil
}

func (s *RegistrationService) detail(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	return detail, nil
}

func (s *RegistrationService) category(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Store(err, "failed to load category")
	}
	return category, nil
}

func (s *RegistrationService) activeCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.category(ctx, id)
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, appErrors.Validation("category is not accepting registrations")
	}
	return category, nil
}

// optionalCategory returns nil without error when the category row is gone,
// so approval falls back to the default validity.
func (s *RegistrationService) optionalCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Store(err, "failed to load category")
	}
	return category, nil
}

func (s *RegistrationService) categoryMap(ctx context.Context, ids []string) (map[string]models.Category, error) {
	categories, err := s.categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load categories")
	}
	out := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		out[c.ID] = c
	}
	return out, nil
}

func (s *RegistrationService) succeed(action string) {
	s.metrics.RecordTransition(action, "success")
}

func (s *RegistrationService) fail(action string, err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, appErrors.ErrValidation), errors.Is(err, appErrors.ErrNotFound):
		outcome = "invalid"
	case errors.Is(err, appErrors.ErrConflict):
		outcome = "conflict"
	}
	s.metrics.RecordTransition(action, outcome)
	if outcome == "error" {
		s.logger.Error("registration transition failed", zap.String("action", action), zap.Error(err))
	}
	return err
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
