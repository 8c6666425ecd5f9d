package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	logger := initWith(&buf, "api-server", "prod", "warn")

	logger.Info().Msg("dropped")
	logger.Warn().Str("k", "v").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "api-server", line["service"])
	assert.Equal(t, "v", line["k"])
	assert.Contains(t, line, "caller")
}

func TestInitFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := initWith(&buf, "seed", "prod", "loud")

	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	logger.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
