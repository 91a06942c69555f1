package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type mapCacheRepo struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *mapCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

func TestCacheServiceRoundTripAndDefaultTTL(t *testing.T) {
	repo := newMapCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var grants []string
	hit, err := svc.Get(ctx, "perm:a1", &grants)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "perm:a1", []string{"manage_registrations"}, 0))
	assert.Equal(t, time.Minute, repo.ttls["perm:a1"])

	hit, err = svc.Get(ctx, "perm:a1", &grants)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"manage_registrations"}, grants)

	require.NoError(t, svc.Remove(ctx, "perm:a1"))
	hit, _ = svc.Get(ctx, "perm:a1", &grants)
	assert.False(t, hit)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Second))
	assert.Empty(t, repo.entries)

	var v string
	hit, err := svc.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMapCacheRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var v string
	hit, err := svc.Get(context.Background(), "k", &v)
	assert.False(t, hit)
	assert.EqualError(t, err, "connection reset")
}
