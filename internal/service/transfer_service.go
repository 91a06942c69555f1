package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/internal/repository"
	"github.com/noah-isme/sep-portal-api/pkg/database"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

type transferStore interface {
	FindPendingByRegistration(ctx context.Context, registrationID string) (*models.CategoryTransferRequest, error)
	FindByID(ctx context.Context, id string) (*models.CategoryTransferRequest, error)
	Create(ctx context.Context, req *models.CategoryTransferRequest) error
	List(ctx context.Context, filter models.TransferFilter) ([]models.CategoryTransferRequest, error)
	Approve(ctx context.Context, approval repository.TransferApproval) (bool, error)
	Reject(ctx context.Context, id, processedBy string, at time.Time) (bool, error)
}

type registrationFinder interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

// TransferService runs the category transfer workflow.
type TransferService struct {
	repo          transferStore
	registrations registrationFinder
	categories    categoryLookup
	events        EventPublisher
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewTransferService constructs the service.
func NewTransferService(repo transferStore, registrations registrationFinder, categories categoryLookup, events EventPublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TransferService{
		repo:          repo,
		registrations: registrations,
		categories:    categories,
		events:        publisherOrNoop(events),
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Request opens a pending transfer for a registration. Name, mobile number
// and customer id are copied from the registration and never resynchronised.
func (s *TransferService) Request(ctx context.Context, registrationID string, payload dto.TransferRequestPayload) (*models.CategoryTransferRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	if payload.ToCategoryID == reg.CategoryID {
		return nil, appErrors.Validation("registration is already in this category")
	}
	target, err := s.category(ctx, payload.ToCategoryID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, appErrors.Validation("target category is not accepting registrations")
	}

	if _, err := s.repo.FindPendingByRegistration(ctx, reg.ID); err == nil {
		return nil, appErrors.Validation("a transfer request is already pending for this registration")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Store(err, "failed to check pending transfers")
	}

	now := s.now()
	req := &models.CategoryTransferRequest{
		RegistrationID: reg.ID,
		FromCategoryID: reg.CategoryID,
		ToCategoryID:   target.ID,
		CustomerID:     reg.CustomerID,
		FullName:       reg.FullName,
		MobileNumber:   reg.MobileNumber,
		Reason:         trimmedOrNil(payload.Reason),
		Status:         models.TransferPending,
		RequestedAt:    now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		// uniq_pending_transfer_per_registration
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a transfer request is already pending for this registration")
		}
		return nil, appErrors.Store(err, "failed to create transfer request")
	}

	s.events.Publish(registrationEvent(realtime.EventTransferRequested, reg.ID, map[string]string{
		"request_id":     req.ID,
		"to_category_id": req.ToCategoryID,
	}))
	return req, nil
}

// Approve moves the registration to the requested category, snapshotting the
// target's chargeable fee, and closes the request. Both writes commit together.
func (s *TransferService) Approve(ctx context.Context, requestID, actor string) (*models.CategoryTransferRequest, error) {
	const action = "transfer_approve"
	req, err := s.pending(ctx, requestID, actor)
	if err != nil {
		return nil, s.fail(action, err)
	}
	// Deactivated categories can still receive approved transfers.
	target, err := s.category(ctx, req.ToCategoryID)
	if err != nil {
		return nil, s.fail(action, err)
	}

	now := s.now()
	ok, err := s.repo.Approve(ctx, repository.TransferApproval{
		RequestID:   req.ID,
		NewFee:      target.ChargeableFee(),
		ProcessedBy: strings.TrimSpace(actor),
		ProcessedAt: now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.fail(action, appErrors.Clone(appErrors.ErrNotFound, "registration or transfer request not found"))
		}
		return nil, s.fail(action, appErrors.Store(err, "failed to approve transfer"))
	}
	if !ok {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrConflict, "transfer request was already processed"))
	}

	s.metrics.RecordTransition(action, "success")
	s.events.Publish(registrationEvent(realtime.EventTransferProcessed, req.RegistrationID, map[string]string{
		"request_id": req.ID,
		"status":     string(models.TransferApproved),
	}))
	return s.find(ctx, req.ID)
}

// Reject closes the request without touching the registration.
func (s *TransferService) Reject(ctx context.Context, requestID, actor string) (*models.CategoryTransferRequest, error) {
	const action = "transfer_reject"
	req, err := s.pending(ctx, requestID, actor)
	if err != nil {
		return nil, s.fail(action, err)
	}
	ok, err := s.repo.Reject(ctx, req.ID, strings.TrimSpace(actor), s.now())
	if err != nil {
		return nil, s.fail(action, appErrors.Store(err, "failed to reject transfer"))
	}
	if !ok {
		return nil, s.fail(action, appErrors.Clone(appErrors.ErrConflict, "transfer request was already processed"))
	}

	s.metrics.RecordTransition(action, "success")
	s.events.Publish(registrationEvent(realtime.EventTransferProcessed, req.RegistrationID, map[string]string{
		"request_id": req.ID,
		"status":     string(models.TransferRejected),
	}))
	return s.find(ctx, req.ID)
}

// List returns requests enriched with both category names.
func (s *TransferService) List(ctx context.Context, filter models.TransferFilter) ([]models.TransferRequestView, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list transfer requests")
	}
	if len(requests) == 0 {
		return []models.TransferRequestView{}, nil
	}

	fromIDs := make([]string, 0, len(requests))
	toIDs := make([]string, 0, len(requests))
	for _, r := range requests {
		fromIDs = append(fromIDs, r.FromCategoryID)
		toIDs = append(toIDs, r.ToCategoryID)
	}

	var fromCats, toCats []models.Category
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fromCats, err = s.categories.FindByIDs(gctx, uniqueStrings(fromIDs))
		return err
	})
	g.Go(func() error {
		var err error
		toCats, err = s.categories.FindByIDs(gctx, uniqueStrings(toIDs))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Store(err, "failed to load transfer categories")
	}

	names := make(map[string]string, len(fromCats)+len(toCats))
	for _, c := range append(fromCats, toCats...) {
		names[c.ID] = c.NameEnglish
	}
	views := make([]models.TransferRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, models.TransferRequestView{
			CategoryTransferRequest: r,
			FromCategoryName:        names[r.FromCategoryID],
			ToCategoryName:          names[r.ToCategoryID],
		})
	}
	return views, nil
}

// PendingForRegistration returns the open request for a registration, or nil.
func (s *TransferService) PendingForRegistration(ctx context.Context, registrationID string) (*models.CategoryTransferRequest, error) {
	req, err := s.repo.FindPendingByRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Store(err, "failed to load pending transfer")
	}
	return req, nil
}

func (s *TransferService) pending(ctx context.Context, requestID, actor string) (*models.CategoryTransferRequest, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, appErrors.Validation("acting admin is required")
	}
	req, err := s.find(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.TransferPending {
		return nil, appErrors.Validation("only pending transfer requests can be processed")
	}
	return req, nil
}

func (s *TransferService) find(ctx context.Context, id string) (*models.CategoryTransferRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transfer request not found")
		}
		return nil, appErrors.Store(err, "failed to load transfer request")
	}
	return req, nil
}

func (s *TransferService) category(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target category not found")
		}
		return nil, appErrors.Store(err, "failed to load category")
	}
	return category, nil
}

func (s *TransferService) fail(action string, err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, appErrors.ErrValidation), errors.Is(err, appErrors.ErrNotFound):
		outcome = "invalid"
	case errors.Is(err, appErrors.ErrConflict):
		outcome = "conflict"
	default:
		s.logger.Error("transfer transition failed", zap.String("action", action), zap.Error(err))
	}
	s.metrics.RecordTransition(action, outcome)
	return err
}
