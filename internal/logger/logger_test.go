package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaimana/seachat/internal/config"
)

func TestNewConsoleOnly(t *testing.T) {
	l, err := New(config.LoggingConfig{Level: "debug", Console: true})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "debug", l.Zerolog().GetLevel().String())
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(config.LoggingConfig{Level: "chatty", Console: true})
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "info", l.Zerolog().GetLevel().String())
}

func TestNewWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "seachat.log")

	l, err := New(config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	zl := l.Zerolog()
	zl.Info().Str("k", "v").Msg("hello")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
