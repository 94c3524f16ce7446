package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForComponent(t *testing.T) {
	var buf bytes.Buffer
	Default = New(&buf)

	ForComponent("listing").Info().Int("page", 3).Msg("Processing page no. 3...")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "listing", line["component"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, float64(3), line["page"])
	assert.Equal(t, "Processing page no. 3...", line["message"])
}

func TestGetLogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	os.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	os.Unsetenv("LOG_LEVEL")
	os.Setenv("STORY_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	os.Unsetenv("STORY_ENVIRONMENT")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())
}
