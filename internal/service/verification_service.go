package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sep-portal-api/internal/models"
	"github.com/noah-isme/sep-portal-api/pkg/database"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

const verificationSchemaMissing = "Database table missing: registration_verifications. Please run the setup SQL"

type verificationStore interface {
	Upsert(ctx context.Context, v *models.RegistrationVerification) error
	FindByRegistration(ctx context.Context, registrationID string) (*models.RegistrationVerification, error)
	ListByRegistrations(ctx context.Context, ids []string) ([]models.RegistrationVerification, error)
	VerifiedAmount(ctx context.Context) (decimal.Decimal, error)
}

// balanceSyncer keeps the main cash account aligned with the verified total.
type balanceSyncer interface {
	SyncMainAccount(ctx context.Context) error
}

// VerificationService writes the fee reconciliation ledger.
type VerificationService struct {
	repo          verificationStore
	registrations registrationFinder
	balances      balanceSyncer
	events        EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewVerificationService constructs the service. balances may be nil.
func NewVerificationService(repo verificationStore, registrations registrationFinder, balances balanceSyncer, events EventPublisher, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		repo:          repo,
		registrations: registrations,
		balances:      balances,
		events:        publisherOrNoop(events),
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Verify marks an approved registration's fee as reconciled and clears any
// earlier restore stamp.
func (s *VerificationService) Verify(ctx context.Context, registrationID, actor string) (*models.RegistrationVerification, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, appErrors.Validation("acting admin is required")
	}
	reg, err := s.registration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationApproved {
		return nil, appErrors.Validation("only approved registrations can be verified")
	}

	now := s.now()
	row := &models.RegistrationVerification{
		RegistrationID: reg.ID,
		Verified:       true,
		VerifiedBy:     &actor,
		VerifiedAt:     &now,
	}
	if err := s.write(ctx, row); err != nil {
		return nil, err
	}
	s.afterChange(ctx, reg.ID, row)
	return row, nil
}

// Restore undoes a verification. The row stays, flagged as restored.
func (s *VerificationService) Restore(ctx context.Context, registrationID, actor string) (*models.RegistrationVerification, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, appErrors.Validation("acting admin is required")
	}
	reg, err := s.registration(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	row := &models.RegistrationVerification{
		RegistrationID: reg.ID,
		Verified:       false,
		RestoredBy:     &actor,
		RestoredAt:     &now,
	}
	if err := s.write(ctx, row); err != nil {
		return nil, err
	}
	s.afterChange(ctx, reg.ID, row)
	return row, nil
}

// Get returns the ledger row of a registration, or nil when it was never verified.
func (s *VerificationService) Get(ctx context.Context, registrationID string) (*models.RegistrationVerification, error) {
	row, err := s.repo.FindByRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, s.storeError(err, "failed to load verification")
	}
	return row, nil
}

// ListByRegistrations returns ledger rows keyed by registration id.
func (s *VerificationService) ListByRegistrations(ctx context.Context, ids []string) (map[string]models.RegistrationVerification, error) {
	rows, err := s.repo.ListByRegistrations(ctx, uniqueStrings(ids))
	if err != nil {
		return nil, s.storeError(err, "failed to load verifications")
	}
	out := make(map[string]models.RegistrationVerification, len(rows))
	for _, row := range rows {
		out[row.RegistrationID] = row
	}
	return out, nil
}

// VerifiedAmount sums the fee of every verified registration.
func (s *VerificationService) VerifiedAmount(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.VerifiedAmount(ctx)
	if err != nil {
		return decimal.Zero, s.storeError(err, "failed to compute verified amount")
	}
	return total, nil
}

func (s *VerificationService) write(ctx context.Context, row *models.RegistrationVerification) error {
	if err := s.repo.Upsert(ctx, row); err != nil {
		return s.storeError(err, "failed to save verification")
	}
	return nil
}

func (s *VerificationService) afterChange(ctx context.Context, registrationID string, row *models.RegistrationVerification) {
	s.events.Publish(registrationEvent(realtime.EventVerificationChanged, registrationID, map[string]bool{"verified": row.Verified}))
	if s.balances == nil {
		return
	}
	if err := s.balances.SyncMainAccount(ctx); err != nil {
		s.logger.Warn("failed to sync main cash account", zap.String("registration_id", registrationID), zap.Error(err))
	}
}

func (s *VerificationService) registration(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Store(err, "failed to load registration")
	}
	return reg, nil
}

func (s *VerificationService) storeError(err error, message string) error {
	if database.IsUndefinedTable(err) {
		s.logger.Error("verification ledger table missing", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrSchemaMissing.Code, appErrors.ErrSchemaMissing.Status, verificationSchemaMissing)
	}
	return appErrors.Store(err, message)
}
