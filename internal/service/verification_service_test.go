package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type fakeVerificationStore struct {
	rows          map[string]models.RegistrationVerification
	registrations *fakeRegistrationStore
	err           error
}

func (f *fakeVerificationStore) Upsert(ctx context.Context, v *models.RegistrationVerification) error {
	if f.err != nil {
		return f.err
	}
	if existing, ok := f.rows[v.RegistrationID]; ok {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	} else {
		v.ID = "ver-" + v.RegistrationID
	}
	f.rows[v.RegistrationID] = *v
	return nil
}

func (f *fakeVerificationStore) FindByRegistration(ctx context.Context, registrationID string) (*models.RegistrationVerification, error) {
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.rows[registrationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (f *fakeVerificationStore) ListByRegistrations(ctx context.Context, ids []string) ([]models.RegistrationVerification, error) {
	out := make([]models.RegistrationVerification, 0, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeVerificationStore) VerifiedAmount(ctx context.Context) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	total := decimal.Zero
	for id, row := range f.rows {
		if !row.Verified {
			continue
		}
		if reg, ok := f.registrations.items[id]; ok {
			total = total.Add(reg.Fee)
		}
	}
	return total, nil
}

type countingSyncer struct {
	calls int
	err   error
}

func (c *countingSyncer) SyncMainAccount(ctx context.Context) error {
	c.calls++
	return c.err
}

func approvedRegistration(id string, fee int64) models.Registration {
	reg := pendingRegistration(id, catTailoringID)
	reg.Status = models.RegistrationApproved
	reg.Fee = decimal.NewFromInt(fee)
	return reg
}

func TestVerificationServiceRoundTrip(t *testing.T) {
	regs := newFakeRegistrationStore(approvedRegistration("r1", 250))
	store := &fakeVerificationStore{rows: map[string]models.RegistrationVerification{}, registrations: regs}
	syncer := &countingSyncer{}
	events := &recordingPublisher{}
	svc := NewVerificationService(store, regs, syncer, events, nil)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "r1", "alice")
	require.NoError(t, err)
	amount, err := svc.VerifiedAmount(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(amount))

	restored, err := svc.Restore(ctx, "r1", "bob")
	require.NoError(t, err)
	assert.True(t, restored.Restored())
	assert.Nil(t, restored.VerifiedBy)
	amount, err = svc.VerifiedAmount(ctx)
	require.NoError(t, err)
	assert.True(t, amount.IsZero())

	_, err = svc.Verify(ctx, "r1", "carol")
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	row, err := svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, row.Verified)
	assert.Equal(t, "carol", *row.VerifiedBy)
	assert.Nil(t, row.RestoredBy)
	assert.Nil(t, row.RestoredAt)
	assert.Equal(t, "ver-r1", row.ID)

	amount, err = svc.VerifiedAmount(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(amount))
	assert.Equal(t, 3, syncer.calls)
	assert.Len(t, events.types(), 3)
}

func TestVerificationServiceRequiresApproved(t *testing.T) {
	regs := newFakeRegistrationStore(pendingRegistration("r1", catTailoringID))
	store := &fakeVerificationStore{rows: map[string]models.RegistrationVerification{}, registrations: regs}
	svc := NewVerificationService(store, regs, nil, nil, nil)

	_, err := svc.Verify(context.Background(), "r1", "alice")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, store.rows)

	_, err = svc.Verify(context.Background(), "ghost", "alice")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Verify(context.Background(), "r1", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestVerificationServiceSchemaMissing(t *testing.T) {
	regs := newFakeRegistrationStore(approvedRegistration("r1", 100))
	store := &fakeVerificationStore{
		rows:          map[string]models.RegistrationVerification{},
		registrations: regs,
		err:           fmt.Errorf("upsert registration verification: %w", &pq.Error{Code: "42P01"}),
	}
	svc := NewVerificationService(store, regs, nil, nil, nil)

	_, err := svc.Verify(context.Background(), "r1", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSchemaMissing)
	assert.Contains(t, err.Error(), "registration_verifications")

	_, err = svc.VerifiedAmount(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrSchemaMissing)
}

func TestVerificationServiceSyncFailureDoesNotFailVerify(t *testing.T) {
	regs := newFakeRegistrationStore(approvedRegistration("r1", 100))
	store := &fakeVerificationStore{rows: map[string]models.RegistrationVerification{}, registrations: regs}
	svc := NewVerificationService(store, regs, &countingSyncer{err: fmt.Errorf("boom")}, nil, nil)

	row, err := svc.Verify(context.Background(), "r1", "alice")
	require.NoError(t, err)
	assert.True(t, row.Verified)
}
