package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type fakeAdminUserStore struct {
	mu      sync.Mutex
	users   map[string]*models.AdminUser
	grants  map[string][]string
	catalog []models.AdminPermission
	deleted []string

	updates   int
	updateErr error
}

func newFakeAdminUserStore() *fakeAdminUserStore {
	return &fakeAdminUserStore{
		users: map[string]*models.AdminUser{
			"u-eva":  {ID: "u-eva", Username: "eva", FullName: "Eva", IsActive: true},
			"u-manu": {ID: "u-manu", Username: "manu", FullName: "Manu", IsActive: true},
		},
		grants: map[string][]string{"u-eva": {"p-users"}},
		catalog: []models.AdminPermission{
			{ID: "p-users", Name: models.PermManageUsers, IsActive: true},
			{ID: "p-regs", Name: models.PermManageRegistrations, IsActive: true},
			{ID: "p-reports", Name: models.PermReportsRead, IsActive: true},
		},
	}
}

func (f *fakeAdminUserStore) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAdminUserStore) PermissionNames(ctx context.Context, adminID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0)
	for _, id := range f.grants[adminID] {
		for _, p := range f.catalog {
			if p.ID == id {
				names = append(names, p.Name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeAdminUserStore) List(ctx context.Context, search string) ([]models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AdminUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeAdminUserStore) ListPermissions(ctx context.Context) ([]models.AdminPermission, error) {
	return f.catalog, nil
}

func (f *fakeAdminUserStore) Create(ctx context.Context, user *models.AdminUser, permissionIDs []string, grantedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username {
			return &pq.Error{Code: "23505"}
		}
	}
	user.ID = "u-" + user.Username
	cp := *user
	f.users[user.ID] = &cp
	f.grants[user.ID] = permissionIDs
	return nil
}

func (f *fakeAdminUserStore) Update(ctx context.Context, user *models.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeAdminUserStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAdminUserStore) ReplacePermissions(ctx context.Context, adminID string, permissionIDs []string, grantedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[adminID] = permissionIDs
	return nil
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) InvalidatePermissions(ctx context.Context, adminID string) {
	r.ids = append(r.ids, adminID)
}

func newTestAdminUserService(store *fakeAdminUserStore, inv *recordingInvalidator) *AdminUserService {
	svc := NewAdminUserService(store, inv, "eva", nil, nil)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestAdminUserServiceCreateWithPermissions(t *testing.T) {
	store := newFakeAdminUserStore()
	svc := newTestAdminUserService(store, &recordingInvalidator{})

	resp, err := svc.Create(context.Background(), dto.CreateAdminUserRequest{
		Username:    "Ravi",
		Password:    "s3cretpass",
		FullName:    "Ravi K",
		Permissions: []string{models.PermManageRegistrations, models.PermReportsRead, models.PermReportsRead},
	}, "eva")
	require.NoError(t, err)
	assert.Equal(t, "ravi", resp.Username)
	assert.Equal(t, []string{models.PermManageRegistrations, models.PermReportsRead}, resp.Permissions)
	assert.True(t, resp.IsActive)

	stored := store.users["u-ravi"]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cretpass")))
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, "eva", *stored.CreatedBy)
}

func TestAdminUserServiceCreateRejectsUnknownPermission(t *testing.T) {
	svc := newTestAdminUserService(newFakeAdminUserStore(), &recordingInvalidator{})

	_, err := svc.Create(context.Background(), dto.CreateAdminUserRequest{
		Username: "ravi", Password: "s3cretpass", FullName: "Ravi", Permissions: []string{"launch_rockets"},
	}, "eva")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAdminUserServiceCreateDuplicate(t *testing.T) {
	svc := newTestAdminUserService(newFakeAdminUserStore(), &recordingInvalidator{})

	_, err := svc.Create(context.Background(), dto.CreateAdminUserRequest{
		Username: "manu", Password: "s3cretpass", FullName: "Manu Again",
	}, "eva")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAdminUserServiceBootstrapProtected(t *testing.T) {
	store := newFakeAdminUserStore()
	svc := newTestAdminUserService(store, &recordingInvalidator{})
	ctx := context.Background()

	err := svc.Delete(ctx, "u-eva", &models.AdminSession{AdminID: "u-manu", AdminName: "manu"})
	assert.ErrorIs(t, err, appErrors.ErrProtectedAccount)
	assert.Contains(t, store.users, "u-eva")

	inactive := false
	_, err = svc.Update(ctx, "u-eva", dto.UpdateAdminUserRequest{IsActive: &inactive}, "manu")
	assert.ErrorIs(t, err, appErrors.ErrProtectedAccount)
	assert.True(t, store.users["u-eva"].IsActive)

	name := "Eva Admin"
	resp, err := svc.Update(ctx, "u-eva", dto.UpdateAdminUserRequest{FullName: &name}, "eva")
	require.NoError(t, err)
	assert.Equal(t, "Eva Admin", resp.FullName)
	assert.True(t, resp.Protected)
}

func TestAdminUserServiceDelete(t *testing.T) {
	store := newFakeAdminUserStore()
	inv := &recordingInvalidator{}
	svc := newTestAdminUserService(store, inv)
	ctx := context.Background()

	err := svc.Delete(ctx, "u-manu", &models.AdminSession{AdminID: "u-manu", AdminName: "manu"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, svc.Delete(ctx, "u-manu", &models.AdminSession{AdminID: "u-eva", AdminName: "eva"}))
	assert.Equal(t, []string{"u-manu"}, store.deleted)
	assert.Equal(t, []string{"u-manu"}, inv.ids)

	assert.ErrorIs(t, svc.Delete(ctx, "u-manu", nil), appErrors.ErrNotFound)
}

func TestAdminUserServiceReplacePermissionsInvalidatesCache(t *testing.T) {
	store := newFakeAdminUserStore()
	inv := &recordingInvalidator{}
	svc := newTestAdminUserService(store, inv)

	resp, err := svc.ReplacePermissions(context.Background(), "u-manu", []string{models.PermReportsRead}, "eva")
	require.NoError(t, err)
	assert.Equal(t, []string{models.PermReportsRead}, resp.Permissions)
	assert.Equal(t, []string{"u-manu"}, inv.ids)

	resp, err = svc.ReplacePermissions(context.Background(), "u-manu", nil, "eva")
	require.NoError(t, err)
	assert.Empty(t, resp.Permissions)
}

func TestAdminUserServiceDeactivateInvalidatesCache(t *testing.T) {
	store := newFakeAdminUserStore()
	inv := &recordingInvalidator{}
	svc := newTestAdminUserService(store, inv)

	inactive := false
	resp, err := svc.Update(context.Background(), "u-manu", dto.UpdateAdminUserRequest{IsActive: &inactive}, "eva")
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.Equal(t, []string{"u-manu"}, inv.ids)
}

func TestAdminUserServiceList(t *testing.T) {
	svc := newTestAdminUserService(newFakeAdminUserStore(), &recordingInvalidator{})

	users, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "eva", users[0].Username)
	assert.Equal(t, []string{models.PermManageUsers}, users[0].Permissions)
	assert.Equal(t, "manu", users[1].Username)
	assert.Empty(t, users[1].Permissions)
}

func TestAdminUserServiceUpdateWritesPasswordWithProfile(t *testing.T) {
	store := newFakeAdminUserStore()
	svc := newTestAdminUserService(store, &recordingInvalidator{})

	name := "Manu P"
	password := "n3wpassword"
	_, err := svc.Update(context.Background(), "u-manu", dto.UpdateAdminUserRequest{FullName: &name, Password: &password}, "eva")
	require.NoError(t, err)
	assert.Equal(t, 1, store.updates)

	stored := store.users["u-manu"]
	assert.Equal(t, "Manu P", stored.FullName)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)))
}

func TestAdminUserServiceUpdateFailureLeavesRowUntouched(t *testing.T) {
	store := newFakeAdminUserStore()
	store.users["u-manu"].PasswordHash = "old-hash"
	store.updateErr = errors.New("connection reset")
	svc := newTestAdminUserService(store, &recordingInvalidator{})

	name := "Manu P"
	password := "n3wpassword"
	_, err := svc.Update(context.Background(), "u-manu", dto.UpdateAdminUserRequest{FullName: &name, Password: &password}, "eva")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStore))
	assert.Equal(t, 1, store.updates)

	stored := store.users["u-manu"]
	assert.Equal(t, "Manu", stored.FullName)
	assert.Equal(t, "old-hash", stored.PasswordHash)
}
