package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

type pendingRegistrationLister interface {
	ListPending(ctx context.Context) ([]models.RegistrationDetail, error)
}

// ExpiryAlertService classifies pending registrations into expired and
// expiring-soon buckets. Reads always classify current rows; the scheduled
// refresh only feeds metrics and the realtime feed.
type ExpiryAlertService struct {
	repo    pendingRegistrationLister
	events  EventPublisher
	metrics *MetricsService
	logger  *zap.Logger
	window  int
	now     func() time.Time
}

// NewExpiryAlertService constructs the service. A non-positive window falls
// back to DefaultAlertWindowDays.
func NewExpiryAlertService(repo pendingRegistrationLister, events EventPublisher, metrics *MetricsService, logger *zap.Logger, window int) *ExpiryAlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = DefaultAlertWindowDays
	}
	return &ExpiryAlertService{
		repo:    repo,
		events:  publisherOrNoop(events),
		metrics: metrics,
		logger:  logger,
		window:  window,
		now:     time.Now,
	}
}

// Snapshot classifies the current pending registrations as of now.
func (s *ExpiryAlertService) Snapshot(ctx context.Context, now time.Time) (*models.ExpiryClassification, error) {
	regs, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load pending registrations")
	}
	result := ClassifyByExpiry(regs, nil, now, s.window)
	return &result, nil
}

// Current classifies the pending registrations as they are right now.
func (s *ExpiryAlertService) Current(ctx context.Context) (*models.ExpiryClassification, error) {
	return s.Snapshot(ctx, s.now().UTC())
}

// Refresh recomputes the buckets, publishes their sizes to metrics and
// notifies admin clients.
func (s *ExpiryAlertService) Refresh(ctx context.Context) (*models.ExpiryClassification, error) {
	result, err := s.Snapshot(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}

	expired, soon := len(result.Expired), len(result.ExpiringSoon)
	s.metrics.SetExpiryBuckets(expired, soon)
	s.events.Publish(realtime.Event{
		Type: realtime.EventExpiryRefreshed,
		At:   result.GeneratedAt,
		Data: map[string]int{"expired": expired, "expiring_soon": soon},
	})
	s.logger.Info("expiry alerts refreshed", zap.Int("expired", expired), zap.Int("expiring_soon", soon))
	return result, nil
}

// Run is the scheduler entry point.
func (s *ExpiryAlertService) Run(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}
