package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type fakePanchayathStore struct {
	items     map[string]*models.Panchayath
	createErr error
}

func (f *fakePanchayathStore) List(ctx context.Context, activeOnly bool) ([]models.Panchayath, error) {
	out := []models.Panchayath{}
	for _, p := range f.items {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePanchayathStore) FindByID(ctx context.Context, id string) (*models.Panchayath, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakePanchayathStore) Create(ctx context.Context, p *models.Panchayath) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = "pan-new"
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePanchayathStore) Update(ctx context.Context, p *models.Panchayath) error {
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePanchayathStore) SetActive(ctx context.Context, id string, active bool) error {
	p, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.IsActive = active
	return nil
}

func newPanchayathFixture() (*PanchayathService, *fakePanchayathStore) {
	store := &fakePanchayathStore{items: map[string]*models.Panchayath{
		"p1": {ID: "p1", Name: "Kodur", District: "Malappuram", IsActive: true},
		"p2": {ID: "p2", Name: "Anakkayam", District: "Malappuram", IsActive: false},
	}}
	return NewPanchayathService(store, nil, nil), store
}

func TestPanchayathServiceListActiveSkipsInactive(t *testing.T) {
	svc, _ := newPanchayathFixture()

	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].ID)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPanchayathServiceCreate(t *testing.T) {
	svc, store := newPanchayathFixture()

	_, err := svc.Create(context.Background(), dto.PanchayathRequest{Name: "Pookkottur"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	p, err := svc.Create(context.Background(), dto.PanchayathRequest{Name: " Pookkottur ", District: "Malappuram"})
	require.NoError(t, err)
	assert.Equal(t, "Pookkottur", p.Name)
	assert.True(t, p.IsActive)

	store.createErr = &pq.Error{Code: "23505"}
	_, err = svc.Create(context.Background(), dto.PanchayathRequest{Name: "Kodur", District: "Malappuram"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestPanchayathServiceSetActive(t *testing.T) {
	svc, _ := newPanchayathFixture()

	p, err := svc.SetActive(context.Background(), "p2", true)
	require.NoError(t, err)
	assert.True(t, p.IsActive)

	_, err = svc.SetActive(context.Background(), "missing", true)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
