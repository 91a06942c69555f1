package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type fakeAnnouncementStore struct {
	items []models.Announcement
	seq   int
}

func (f *fakeAnnouncementStore) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	out := make([]models.Announcement, 0, len(f.items))
	for _, a := range f.items {
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeAnnouncementStore) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	for _, a := range f.items {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAnnouncementStore) Create(ctx context.Context, a *models.Announcement) error {
	f.seq++
	a.ID = "ann-new"
	a.CreatedAt = testNow.Add(time.Duration(f.seq) * time.Hour)
	f.items = append(f.items, *a)
	return nil
}

func (f *fakeAnnouncementStore) Update(ctx context.Context, a *models.Announcement) error {
	for i := range f.items {
		if f.items[i].ID == a.ID {
			f.items[i] = *a
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeAnnouncementStore) Delete(ctx context.Context, id string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestAnnouncementServiceListLatestReturnsNewestThreeActive(t *testing.T) {
	store := &fakeAnnouncementStore{}
	for i, active := range []bool{true, true, false, true, true} {
		store.items = append(store.items, models.Announcement{
			ID:        string(rune('a' + i)),
			Title:     "notice",
			IsActive:  active,
			CreatedAt: testNow.Add(time.Duration(i) * time.Hour),
		})
	}
	svc := NewAnnouncementService(store, nil, nil)

	rows, err := svc.ListLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, LatestAnnouncementsLimit)
	assert.Equal(t, []string{"e", "d", "b"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestAnnouncementServiceCreateUpdateDelete(t *testing.T) {
	store := &fakeAnnouncementStore{}
	svc := NewAnnouncementService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.AnnouncementRequest{Title: "  ", Content: "body"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	created, err := svc.Create(ctx, dto.AnnouncementRequest{Title: " Camp on Monday ", Content: "Bring ID"})
	require.NoError(t, err)
	assert.Equal(t, "Camp on Monday", created.Title)
	assert.True(t, created.IsActive)

	inactive := false
	updated, err := svc.Update(ctx, created.ID, dto.AnnouncementRequest{Title: "Camp moved", Content: "Tuesday", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), appErrors.ErrNotFound)
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

type fakeUtilityStore struct {
	items      map[string]*models.Utility
	lastLimit  int
	lastActive bool
}

func (f *fakeUtilityStore) List(ctx context.Context, activeOnly bool, limit int) ([]models.Utility, error) {
	f.lastActive, f.lastLimit = activeOnly, limit
	out := make([]models.Utility, 0, len(f.items))
	for _, u := range f.items {
		if activeOnly && !u.IsActive {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUtilityStore) FindByID(ctx context.Context, id string) (*models.Utility, error) {
	u, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUtilityStore) Create(ctx context.Context, u *models.Utility) error {
	u.ID = "util-new"
	cp := *u
	f.items[u.ID] = &cp
	return nil
}

func (f *fakeUtilityStore) Update(ctx context.Context, u *models.Utility) error {
	if _, ok := f.items[u.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *u
	f.items[u.ID] = &cp
	return nil
}

func (f *fakeUtilityStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

func TestUtilityServiceListActiveCapsPublicLinks(t *testing.T) {
	store := &fakeUtilityStore{items: map[string]*models.Utility{}}
	svc := NewUtilityService(store, nil, nil)

	_, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.True(t, store.lastActive)
	assert.Equal(t, PublicUtilitiesLimit, store.lastLimit)

	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.False(t, store.lastActive)
	assert.Zero(t, store.lastLimit)
}

func TestUtilityServiceValidatesURL(t *testing.T) {
	store := &fakeUtilityStore{items: map[string]*models.Utility{}}
	svc := NewUtilityService(store, nil, nil)

	_, err := svc.Create(context.Background(), dto.UtilityRequest{Name: "Portal", URL: "not a url"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	desc := "  "
	u, err := svc.Create(context.Background(), dto.UtilityRequest{Name: "Portal", URL: "https://example.org", Description: &desc})
	require.NoError(t, err)
	assert.Nil(t, u.Description)

	_, err = svc.Update(context.Background(), "missing", dto.UtilityRequest{Name: "x", URL: "https://example.org"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
