package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an admin.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and the session descriptor.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	Session     AdminSession `json:"session"`
	IssuedAt    time.Time    `json:"issued_at"`
}

// AdminSession is the authenticated context passed to operations that need
// the acting admin or a permission check.
type AdminSession struct {
	AdminID     string   `json:"admin_id"`
	AdminName   string   `json:"admin_name"`
	FullName    string   `json:"full_name"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the session was granted the named permission.
func (s *AdminSession) HasPermission(name string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether any of the names was granted.
func (s *AdminSession) HasAnyPermission(names ...string) bool {
	for _, name := range names {
		if s.HasPermission(name) {
			return true
		}
	}
	return false
}

// Actor returns the name recorded on rows the admin changes.
func (s *AdminSession) Actor() string {
	if s == nil {
		return ""
	}
	if s.AdminName != "" {
		return s.AdminName
	}
	return s.FullName
}

// JWTClaims represents the JWT payload for admin access tokens.
type JWTClaims struct {
	AdminID     string   `json:"admin_id"`
	Username    string   `json:"username"`
	FullName    string   `json:"full_name"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Session converts token claims into a session descriptor.
func (c *JWTClaims) Session() *AdminSession {
	if c == nil {
		return nil
	}
	perms := make([]string, len(c.Permissions))
	copy(perms, c.Permissions)
	return &AdminSession{AdminID: c.AdminID, AdminName: c.Username, FullName: c.FullName, Permissions: perms}
}
