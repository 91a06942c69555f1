package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/sep-portal-api/internal/middleware"
	"github.com/noah-isme/sep-portal-api/internal/models"
	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

const queryDateLayout = "2006-01-02"

func sessionFromContext(c *gin.Context) *models.AdminSession {
	return middleware.SessionFromContext(c)
}

// actorFromContext returns the acting admin's name, or "" for anonymous calls.
func actorFromContext(c *gin.Context) string {
	return sessionFromContext(c).Actor()
}

// queryDate parses an optional YYYY-MM-DD (or RFC3339) query parameter.
func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(queryDateLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Validation(key + " must be a date (YYYY-MM-DD)")
	}
	return &t, nil
}

func queryBool(c *gin.Context, key string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

// splitIDs reads a comma separated list such as ?ids=a,b,c.
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// pathID returns the :id parameter. Row ids are UUIDs, so any other value
// cannot name a row and is reported as not found before touching the store.
func pathID(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	return id, nil
}

// requireUUIDs rejects a body id list containing a value that is not a UUID.
func requireUUIDs(field string, ids []string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
			return appErrors.Validation(field + " must contain valid ids")
		}
	}
	return nil
}
