package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewJSONLoggerHonoursLevel(t *testing.T) {
	var out bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json"}, &out)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("cycle done", zap.Int("failed", 2))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "cycle done", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, 2.0, entry["failed"])
	assert.Contains(t, entry, "ts")
}

func TestNewConsoleLoggerDefaults(t *testing.T) {
	var out bytes.Buffer
	logger, err := New(Config{}, &out)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("items found", zap.Int("count", 3))

	assert.Contains(t, out.String(), "INFO")
	assert.Contains(t, out.String(), "items found")
	assert.NotContains(t, out.String(), "hidden")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)

	_, err = New(Config{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
}
