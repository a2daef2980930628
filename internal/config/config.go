package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName  string
	AppEnv   string
	AppURL   string // Base of public share links
	Port     string
	LogLevel string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret      string
	JWTExpiry      time.Duration
	AuthRateLimit  int           // Login/register attempts per client per window
	AuthRateWindow time.Duration

	// Bootstrap admin, created on start when both are set
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	// Observability (optional)
	SentryDSN string

	// Storage
	StorageDriver     string // "local" or "s3"
	StorageRoot       string
	MaxUploadSize     int64
	ReconcileInterval time.Duration // 0 disables the background loop
	ReconcileGrace    time.Duration

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3Prefix    string
	S3SpoolDir  string // Uploads are staged here before PutObject
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:  envString("APP_NAME", "Fileshare"),
		AppEnv:   envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:   envRequired("APP_URL"), // Required: base URL for share links
		Port:     envString("PORT", "8090"),
		LogLevel: envString("LOG_LEVEL", ""),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/fileshare.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret:      envRequired("JWT_SECRET"),
		JWTExpiry:      envDuration("JWT_EXPIRY", 24*time.Hour),
		AuthRateLimit:  int(envInt64("AUTH_RATE_LIMIT", 10)),
		AuthRateWindow: envDuration("AUTH_RATE_WINDOW", 15*time.Minute),

		AdminUsername: envString("ADMIN_USERNAME", ""),
		AdminEmail:    envString("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: envString("ADMIN_PASSWORD", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageDriver:     envString("STORAGE_DRIVER", "local"),
		StorageRoot:       envString("STORAGE_ROOT", "./data/uploads"),
		MaxUploadSize:     envInt64("MAX_UPLOAD_SIZE", 20<<20), // 20 MiB
		ReconcileInterval: envDuration("RECONCILE_INTERVAL", 1*time.Hour),
		ReconcileGrace:    envDuration("RECONCILE_GRACE", 15*time.Minute),

		// Storage - S3 (only read when STORAGE_DRIVER=s3)
		S3Region:    envString("S3_REGION", "us-east-1"),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""), // Optional: for non-AWS providers
		S3Prefix:    envString("S3_PREFIX", "blobs/"),
		S3SpoolDir:  envString("S3_SPOOL_DIR", ""),
	}

	err = cfg.Validate()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	return cfg
}

// Validate checks settings that cannot be fixed by falling back to a default.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "local":
		if c.StorageRoot == "" {
			return fmt.Errorf("STORAGE_ROOT is required for the local storage driver")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want local or s3)", c.StorageDriver)
	}

	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want sqlite or pgx)", c.DBDriver)
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}

	// Production: short secrets make every token forgeable
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}

	return nil
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
