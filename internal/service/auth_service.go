package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

const permissionCacheKeyPrefix = "sep:admin_permissions:"

type authAdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	PermissionNames(ctx context.Context, adminID string) ([]string, error)
}

// keyValueCache is satisfied by CacheService.
type keyValueCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	Issuer             string
	BootstrapAdmin     string
	PermissionCacheTTL time.Duration
}

type cachedGrants struct {
	Permissions []string `json:"permissions"`
}

// AuthService authenticates admins and resolves their sessions.
type AuthService struct {
	repo      authAdminRepository
	cache     keyValueCache
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService constructs an AuthService instance. cache may be nil.
func NewAuthService(repo authAdminRepository, cache keyValueCache, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	if config.PermissionCacheTTL <= 0 {
		config.PermissionCacheTTL = time.Minute
	}
	return &AuthService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials and issues an access token. Unknown user,
// inactive user and wrong password all produce the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.burnCompare(req.Password)
			return nil, s.invalidCredentials(req)
		}
		return nil, appErrors.Store(err, "failed to fetch admin user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.invalidCredentials(req)
	}
	if !user.IsActive && !s.IsBootstrapAdmin(user.Username) {
		return nil, s.invalidCredentials(req)
	}

	permissions, err := s.repo.PermissionNames(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load permissions")
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.String("admin", user.Username), zap.Error(err))
	}

	session := models.AdminSession{AdminID: user.ID, AdminName: user.Username, FullName: user.FullName, Permissions: permissions}
	token, err := s.generateAccessToken(session, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.cacheGrants(ctx, user.ID, permissions)

	s.logger.Info("admin logged in", zap.String("admin", user.Username), zap.String("ip", req.IP))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Session:     session,
		IssuedAt:    now,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.AdminID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Session resolves the per-request session for validated claims. Grants are
// read through the permission cache so revocations apply before the token
// expires.
func (s *AuthService) Session(ctx context.Context, claims *models.JWTClaims) (*models.AdminSession, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}
	session := claims.Session()

	var grants cachedGrants
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, permissionCacheKey(claims.AdminID), &grants)
		if err == nil && hit {
			session.Permissions = grants.Permissions
			return session, nil
		}
	}

	user, err := s.repo.FindByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "admin account no longer exists")
		}
		return nil, appErrors.Store(err, "failed to load admin user")
	}
	if !user.IsActive && !s.IsBootstrapAdmin(user.Username) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "admin account is inactive")
	}
	permissions, err := s.repo.PermissionNames(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to load permissions")
	}
	s.cacheGrants(ctx, user.ID, permissions)

	session.AdminName = user.Username
	session.FullName = user.FullName
	session.Permissions = permissions
	return session, nil
}

// InvalidatePermissions drops the cached grants of an admin.
func (s *AuthService) InvalidatePermissions(ctx context.Context, adminID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Remove(ctx, permissionCacheKey(adminID)); err != nil {
		s.logger.Warn("failed to invalidate permission cache", zap.String("admin_id", adminID), zap.Error(err))
	}
}

// IsBootstrapAdmin reports whether username names the protected admin.
func (s *AuthService) IsBootstrapAdmin(username string) bool {
	return s.config.BootstrapAdmin != "" && strings.EqualFold(strings.TrimSpace(username), s.config.BootstrapAdmin)
}

func (s *AuthService) cacheGrants(ctx context.Context, adminID string, permissions []string) {
	if s.cache == nil {
		return
	}
	if permissions == nil {
		permissions = []string{}
	}
	_ = s.cache.Set(ctx, permissionCacheKey(adminID), cachedGrants{Permissions: permissions}, s.config.PermissionCacheTTL)
}

func (s *AuthService) invalidCredentials(req models.LoginRequest) error {
	s.logger.Info("admin login rejected", zap.String("username", req.Username), zap.String("ip", req.IP))
	return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
}

// burnCompare spends a bcrypt comparison for unknown usernames so response
// time does not reveal whether the account exists.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sep-portal-unknown-admin"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func (s *AuthService) generateAccessToken(session models.AdminSession, issuedAt time.Time) (string, error) {
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		AdminID:     session.AdminID,
		Username:    session.AdminName,
		FullName:    session.FullName,
		Permissions: session.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   session.AdminID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func permissionCacheKey(adminID string) string {
	return permissionCacheKeyPrefix + adminID
}
