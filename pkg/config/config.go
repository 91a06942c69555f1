package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Auth       AuthConfig
	Categories CategoriesConfig
	Expiry     ExpiryConfig
	Storage    StorageConfig
	Reports    ReportsConfig
	Directory  DirectoryConfig
	Realtime   RealtimeConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig governs admin sessions.
type AuthConfig struct {
	BootstrapAdmin     string
	PermissionCacheTTL time.Duration
}

// CategoriesConfig tunes the public catalog.
type CategoriesConfig struct {
	CacheTTL          time.Duration
	DefaultExpiryDays int
}

// ExpiryConfig controls the periodic expiry reclassification.
type ExpiryConfig struct {
	RefreshEnabled  bool
	RefreshSpec     string
	AlertWindowDays int
}

// StorageConfig selects where category QR images live.
type StorageConfig struct {
	Driver          string
	LocalDir        string
	PublicURLPrefix string
	S3Region        string
	S3Bucket        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3BaseURL       string
	QRMaxFileSize   int64
}

// ReportsConfig configures asynchronous export generation.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupSpec       string
	WorkerConcurrency int
	WorkerRetries     int
}

// DirectoryConfig points at the external read-only directory proxy.
type DirectoryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RealtimeConfig toggles the admin change feed.
type RealtimeConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Auth = AuthConfig{
		BootstrapAdmin:     v.GetString("BOOTSTRAP_ADMIN_USERNAME"),
		PermissionCacheTTL: parseDuration(v.GetString("PERMISSION_CACHE_TTL"), time.Minute),
	}

	cfg.Categories = CategoriesConfig{
		CacheTTL:          parseDuration(v.GetString("CATEGORY_CACHE_TTL"), 5*time.Minute),
		DefaultExpiryDays: v.GetInt("DEFAULT_EXPIRY_DAYS"),
	}

	cfg.Expiry = ExpiryConfig{
		RefreshEnabled:  v.GetBool("ENABLE_EXPIRY_REFRESH"),
		RefreshSpec:     v.GetString("EXPIRY_REFRESH_SPEC"),
		AlertWindowDays: v.GetInt("EXPIRY_ALERT_WINDOW_DAYS"),
	}

	maxQRSize := v.GetInt64("QR_MAX_FILE_SIZE")
	if maxQRSize <= 0 {
		maxQRSize = 2 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		PublicURLPrefix: strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL_PREFIX"), "/"),
		S3Region:        v.GetString("S3_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3AccessKeyID:   v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:     v.GetString("S3_SECRET_ACCESS_KEY"),
		S3BaseURL:       strings.TrimRight(v.GetString("S3_BASE_URL"), "/"),
		QRMaxFileSize:   maxQRSize,
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupSpec:       v.GetString("REPORTS_CLEANUP_SPEC"),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Directory = DirectoryConfig{
		BaseURL: strings.TrimRight(v.GetString("DIRECTORY_BASE_URL"), "/"),
		APIKey:  v.GetString("DIRECTORY_API_KEY"),
		Timeout: parseDuration(v.GetString("DIRECTORY_TIMEOUT"), 5*time.Second),
	}

	cfg.Realtime = RealtimeConfig{Enabled: v.GetBool("ENABLE_REALTIME")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sep_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "eva")
	v.SetDefault("PERMISSION_CACHE_TTL", "1m")

	v.SetDefault("CATEGORY_CACHE_TTL", "5m")
	v.SetDefault("DEFAULT_EXPIRY_DAYS", 30)

	v.SetDefault("ENABLE_EXPIRY_REFRESH", true)
	v.SetDefault("EXPIRY_REFRESH_SPEC", "@hourly")
	v.SetDefault("EXPIRY_ALERT_WINDOW_DAYS", 3)

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_URL_PREFIX", "/uploads")
	v.SetDefault("S3_REGION", "ap-south-1")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_BASE_URL", "")
	v.SetDefault("QR_MAX_FILE_SIZE", 2*1024*1024)

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_SPEC", "@every 1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("DIRECTORY_BASE_URL", "")
	v.SetDefault("DIRECTORY_API_KEY", "")
	v.SetDefault("DIRECTORY_TIMEOUT", "5s")

	v.SetDefault("ENABLE_REALTIME", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
