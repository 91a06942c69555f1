package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
	"github.com/noah-isme/sep-portal-api/pkg/response"
)

// RequirePermission lets the request through when the session holds any of
// the named permissions. It must run after JWT.
func RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if len(permissions) > 0 && !session.HasAnyPermission(permissions...) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "you do not have permission to perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}
