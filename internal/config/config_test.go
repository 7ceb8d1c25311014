package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "gpt-4o-2024-11-20", cfg.Engine.Model)
	assert.Equal(t, 0.2, cfg.Engine.Temperature)
	assert.True(t, cfg.Engine.AutoRun)
	assert.Equal(t, time.Hour, cfg.Session.IdleTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileBytes)
	assert.Equal(t, 10, cfg.Upload.MaxFilesPerSession)
	assert.Contains(t, cfg.Upload.AllowedExtensions, ".csv")
	assert.Equal(t, 10, cfg.RateLimit.ChatPerMinute)
	assert.Equal(t, 5, cfg.RateLimit.UploadPerMinute)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Engine.Provider = "cohere"
		assert.Error(t, cfg.Validate())
	})

	t.Run("extension without dot", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Upload.AllowedExtensions = []string{"csv"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero rate limit", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimit.ChatPerMinute = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoaderDefaults(t *testing.T) {
	loader := NewLoader("")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoaderFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seachat.json")

	data := `{
		"server": {"port": 9000},
		"redis": {"addr": "redis:6379"},
		"rate_limit": {"chat_per_minute": 20}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 20, cfg.RateLimit.ChatPerMinute)
	// Untouched values keep defaults
	assert.Equal(t, 5, cfg.RateLimit.UploadPerMinute)
}

func TestLoaderMissingFile(t *testing.T) {
	loader := NewLoader("/nonexistent/seachat.json")
	_, err := loader.Load()
	assert.Error(t, err)
}
