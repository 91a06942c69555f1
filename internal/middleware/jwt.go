package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/logger"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the admin session.
const ContextSessionKey = "adminSession"

// accessTokenQuery carries the token for websocket upgrades, where browsers
// cannot set headers.
const accessTokenQuery = "access_token"

// SessionResolver turns an access token into an admin session.
type SessionResolver interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
	Session(ctx context.Context, claims *models.JWTClaims) (*models.AdminSession, error)
}

// JWT protects routes by requiring a valid access token for an active admin.
func JWT(sessions SessionResolver) gin.HandlerFunc {
	return authenticate(sessions, false)
}

// JWTWithQuery is JWT that also accepts ?access_token=.
func JWTWithQuery(sessions SessionResolver) gin.HandlerFunc {
	return authenticate(sessions, true)
}

func authenticate(sessions SessionResolver, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c, allowQuery)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		session, err := sessions.Session(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Set(logger.ActorKey, session.Actor())
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if allowQuery {
			if token := strings.TrimSpace(c.Query(accessTokenQuery)); token != "" {
				return token, nil
			}
		}
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// SessionFromContext returns the session attached by JWT, or nil.
func SessionFromContext(c *gin.Context) *models.AdminSession {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.AdminSession)
	return session
}
