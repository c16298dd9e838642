package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleOnly(t *testing.T) {
	lg, err := New(Config{Level: "info", Console: true})
	require.NoError(t, err)
	defer lg.Close()

	assert.NotNil(t, lg.GetZerolog())
}

func TestNew_WithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	lg, err := New(Config{Level: "debug", File: logFile})
	require.NoError(t, err)

	zl := lg.GetZerolog()
	zl.Info().Str("key", "value").Msg("test entry")
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test entry")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	lg, err := New(Config{Level: "not-a-level", Console: true})
	require.NoError(t, err)
	defer lg.Close()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
}
