package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

type pendingListStub struct {
	rows  []models.RegistrationDetail
	err   error
	calls int
}

func (p *pendingListStub) ListPending(ctx context.Context) ([]models.RegistrationDetail, error) {
	p.calls++
	return p.rows, p.err
}

func TestExpiryAlertServiceRefreshPublishesCounts(t *testing.T) {
	repo := &pendingListStub{rows: []models.RegistrationDetail{
		exportDetail("Expired", testNow.AddDate(0, 0, -31), 30),
		exportDetail("Soon", testNow.AddDate(0, 0, -29), 30),
		exportDetail("Fresh", testNow, 30),
	}}
	events := &recordingPublisher{}
	metrics := NewMetricsService()
	svc := NewExpiryAlertService(repo, events, metrics, nil, 0)
	svc.now = func() time.Time { return testNow }

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Expired, 1)
	assert.Len(t, result.ExpiringSoon, 1)
	assert.Equal(t, []string{realtime.EventExpiryRefreshed}, events.types())

	snap := metrics.Snapshot()
	assert.Equal(t, 1, snap.ExpiredRegistrations)
	assert.Equal(t, 1, snap.ExpiringSoonRegistrations)
}

func TestExpiryAlertServiceCurrentReflectsLatestRows(t *testing.T) {
	expired := exportDetail("Expired", testNow.AddDate(0, 0, -31), 30)
	repo := &pendingListStub{rows: []models.RegistrationDetail{expired}}
	events := &recordingPublisher{}
	svc := NewExpiryAlertService(repo, events, nil, nil, 5)
	svc.now = func() time.Time { return testNow }

	before, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Len(t, before.Expired, 1)

	// approved registrations drop out of the pending list
	repo.rows = nil
	after, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Empty(t, after.Expired)
	assert.Empty(t, after.ExpiringSoon)
	assert.Equal(t, 2, repo.calls)
	assert.Empty(t, events.types())

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 3, repo.calls)
	assert.Equal(t, []string{realtime.EventExpiryRefreshed}, events.types())
}

func TestExpiryAlertServiceSnapshotStoreError(t *testing.T) {
	svc := NewExpiryAlertService(&pendingListStub{err: errors.New("db down")}, nil, nil, nil, 3)
	_, err := svc.Snapshot(context.Background(), testNow)
	assert.ErrorIs(t, err, appErrors.ErrStore)
}
