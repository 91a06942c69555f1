package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.AdminUser
	permissions      map[string][]string
	findErr          error
	permissionCalls  int
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	if u, ok := m.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (m *mockAuthRepo) PermissionNames(ctx context.Context, adminID string) ([]string, error) {
	m.permissionCalls++
	return m.permissions[adminID], nil
}

type memoryCache struct {
	values map[string][]byte
	gets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *memoryCache) Remove(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T) (*mockAuthRepo, *memoryCache, *AuthService) {
	t.Helper()
	repo := &mockAuthRepo{
		users: map[string]*models.AdminUser{
			"a1": {ID: "a1", Username: "manu", FullName: "Manu P", PasswordHash: hashPassword(t, "correct-horse"), IsActive: true},
			"a2": {ID: "a2", Username: "sleepy", FullName: "Sleepy", PasswordHash: hashPassword(t, "correct-horse"), IsActive: false},
			"a3": {ID: "a3", Username: "eva", FullName: "Eva", PasswordHash: hashPassword(t, "bootstrap-pass"), IsActive: false},
		},
		permissions: map[string][]string{
			"a1": {models.PermManageRegistrations, models.PermReportsRead},
			"a3": {models.PermManageUsers},
		},
	}
	cache := newMemoryCache()
	svc := NewAuthService(repo, cache, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		BootstrapAdmin:    "eva",
	})
	return repo, cache, svc
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo, cache, svc := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: " MANU ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "a1", res.Session.AdminID)
	assert.Equal(t, "manu", res.Session.AdminName)
	assert.True(t, res.Session.HasPermission(models.PermManageRegistrations))
	assert.False(t, res.Session.HasPermission(models.PermManageUsers))
	assert.True(t, repo.lastLoginUpdated)
	assert.Contains(t, cache.values, permissionCacheKey("a1"))
}

func TestAuthServiceLoginFailuresAreUniform(t *testing.T) {
	_, _, svc := newAuthFixture(t)
	ctx := context.Background()

	attempts := []models.LoginRequest{
		{Username: "ghost", Password: "whatever"},
		{Username: "manu", Password: "wrong-password"},
		{Username: "sleepy", Password: "correct-horse"},
	}
	var first *appErrors.Error
	for _, req := range attempts {
		_, err := svc.Login(ctx, req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
		if first == nil {
			first = appErr
			continue
		}
		assert.Equal(t, first.Message, appErr.Message)
		assert.Equal(t, first.Status, appErr.Status)
	}
}

func TestAuthServiceBootstrapAdminAlwaysActive(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "eva", Password: "bootstrap-pass"})
	require.NoError(t, err)
	assert.Equal(t, "eva", res.Session.AdminName)
	assert.True(t, svc.IsBootstrapAdmin("EVA"))
	assert.False(t, svc.IsBootstrapAdmin("manu"))
}

func TestAuthServiceLoginStoreFailure(t *testing.T) {
	repo, _, svc := newAuthFixture(t)
	repo.findErr = errors.New("connection refused")

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "manu", Password: "correct-horse"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStore)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "  ", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestValidateToken(t *testing.T) {
	_, _, svc := newAuthFixture(t)
	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "manu", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AdminID)
	assert.Equal(t, "manu", claims.Username)

	_, err = svc.ValidateToken(res.AccessToken + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceSessionReadsThroughCache(t *testing.T) {
	repo, cache, svc := newAuthFixture(t)
	ctx := context.Background()
	claims := &models.JWTClaims{AdminID: "a1", Username: "manu", Permissions: []string{models.PermManageUsers}}

	session, err := svc.Session(ctx, claims)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.PermManageRegistrations, models.PermReportsRead}, session.Permissions)
	assert.Equal(t, 1, repo.permissionCalls)

	_, err = svc.Session(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.permissionCalls)

	repo.permissions["a1"] = []string{models.PermReportsRead}
	svc.InvalidatePermissions(ctx, "a1")
	assert.NotContains(t, cache.values, permissionCacheKey("a1"))

	session, err = svc.Session(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, []string{models.PermReportsRead}, session.Permissions)
	assert.Equal(t, 2, repo.permissionCalls)
}

func TestAuthServiceSessionRejectsInactiveOrMissing(t *testing.T) {
	_, _, svc := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Session(ctx, &models.JWTClaims{AdminID: "a2"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Session(ctx, &models.JWTClaims{AdminID: "gone"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Session(ctx, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
