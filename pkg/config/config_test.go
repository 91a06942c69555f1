package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "eva", cfg.Auth.BootstrapAdmin)
	assert.Equal(t, 30, cfg.Categories.DefaultExpiryDays)
	assert.Equal(t, 3, cfg.Expiry.AlertWindowDays)
	assert.Equal(t, "@hourly", cfg.Expiry.RefreshSpec)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, int64(2*1024*1024), cfg.Storage.QRMaxFileSize)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOOTSTRAP_ADMIN_USERNAME", "root")
	t.Setenv("EXPIRY_ALERT_WINDOW_DAYS", "5")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("ALLOWED_ORIGINS", "https://portal.example, https://admin.example ,")
	t.Setenv("PERMISSION_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.Auth.BootstrapAdmin)
	assert.Equal(t, 5, cfg.Expiry.AlertWindowDays)
	assert.Equal(t, StorageDriverS3, cfg.Storage.Driver)
	assert.Equal(t, []string{"https://portal.example", "https://admin.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Auth.PermissionCacheTTL)
}
