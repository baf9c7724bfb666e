package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/bnema/memsim/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn", Format: "json"}, &out)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "tvl", 100.0)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "memsim", entry["service"])
	assert.Equal(t, 100.0, entry["tvl"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(config.LogConfig{Level: "verbose", Format: "text"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported log level")
}
