package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

type sessionResolverStub struct {
	sessions map[string]*models.AdminSession
}

func (s *sessionResolverStub) ValidateToken(token string) (*models.JWTClaims, error) {
	session, ok := s.sessions[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{AdminID: session.AdminID, Username: session.AdminName, Permissions: session.Permissions}, nil
}

func (s *sessionResolverStub) Session(ctx context.Context, claims *models.JWTClaims) (*models.AdminSession, error) {
	return claims.Session(), nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	resolver := &sessionResolverStub{sessions: map[string]*models.AdminSession{
		"reader": {AdminID: "1", AdminName: "reader", Permissions: []string{models.PermUsersRead}},
		"writer": {AdminID: "2", AdminName: "eva", Permissions: []string{models.PermManageRegistrations}},
		"none":   {AdminID: "3", AdminName: "viewer", Permissions: nil},
	}}
	RegisterRoutes(r, "/api/v1", Handlers{
		Auth:          NewAuthHandler(nil),
		Registrations: NewRegistrationHandler(&registrationServiceMock{detail: pendingDetail()}),
	}, resolver)
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter()
	w := serve(r, http.MethodGet, "/api/v1/admin/registrations", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/admin/registrations", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesEnforcePermissions(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/v1/admin/registrations", "none").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/admin/registrations", "reader").Code)

	// read grant does not allow lifecycle transitions
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/api/v1/admin/registrations/"+testRegistrationID+"/approve", "reader").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/admin/registrations/"+testRegistrationID+"/approve", "writer").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/api/v1/admin/registrations/reg-1/approve", "writer").Code)
}

func TestAuthMeReturnsSession(t *testing.T) {
	r := newTestRouter()
	w := serve(r, http.MethodGet, "/api/v1/admin/auth/me", "writer")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin_name":"eva"`)
}

func TestPublicStatusRouteNeedsNoToken(t *testing.T) {
	r := newTestRouter()
	w := serve(r, http.MethodGet, "/api/v1/registrations/status?q=9876543210", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
