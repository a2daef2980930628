package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FS_TEST_INT", "1024")
	t.Setenv("FS_TEST_BAD_INT", "lots")
	t.Setenv("FS_TEST_DURATION", "90s")
	t.Setenv("FS_TEST_BAD_DURATION", "soon")

	assert.Equal(t, int64(1024), envInt64("FS_TEST_INT", 1))
	assert.Equal(t, int64(7), envInt64("FS_TEST_BAD_INT", 7))
	assert.Equal(t, int64(7), envInt64("FS_TEST_UNSET", 7))
	assert.Equal(t, 90*time.Second, envDuration("FS_TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, envDuration("FS_TEST_BAD_DURATION", time.Minute))
	assert.Equal(t, "fallback", envString("FS_TEST_UNSET", "fallback"))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AppEnv:         "development",
			DBDriver:       "sqlite",
			StorageDriver:  "local",
			StorageRoot:    "./data/uploads",
			MaxUploadSize:  20 << 20,
			JWTSecret:      "dev",
			AuthRateLimit:  10,
			AuthRateWindow: 15 * time.Minute,
		}
	}

	assert.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"unknown storage driver": func(c *Config) { c.StorageDriver = "ftp" },
		"s3 without bucket":      func(c *Config) { c.StorageDriver = "s3" },
		"zero auth rate limit":   func(c *Config) { c.AuthRateLimit = 0 },
		"unknown db driver":      func(c *Config) { c.DBDriver = "mysql" },
		"zero upload size":       func(c *Config) { c.MaxUploadSize = 0 },
		"short prod secret":      func(c *Config) { c.AppEnv = "production" },
	}
	for name, mutate := range tests {
		cfg := valid()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
