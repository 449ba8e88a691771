package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/crytic/medusa-statecache/logging/colors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddAndRemoveWriter will test to Logger.AddWriter and Logger.RemoveWriter functions to ensure that they work as expected.
func TestAddAndRemoveWriter(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel, false)

	logger.AddWriter(os.Stdout, UNSTRUCTURED)
	logger.AddWriter(os.Stderr, STRUCTURED)
	assert.Equal(t, 2, logger.Writers())

	// Duplicates are ignored, regardless of format
	logger.AddWriter(os.Stdout, UNSTRUCTURED)
	logger.AddWriter(os.Stderr, UNSTRUCTURED)
	assert.Equal(t, 2, logger.Writers())

	logger.RemoveWriter(os.Stdout)
	assert.Equal(t, 1, logger.Writers())
	logger.RemoveWriter(os.Stdout)
	assert.Equal(t, 1, logger.Writers())
	logger.RemoveWriter(os.Stderr)
	assert.Equal(t, 0, logger.Writers())
}

// TestStructuredOutput verifies structured writers receive JSON events carrying sub-logger context, errors and
// structured info.
func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.InfoLevel, false)
	logger.AddWriter(&buf, STRUCTURED)
	subLogger := logger.NewSubLogger(SERVICE_KEY, STATE_SERVICE)

	subLogger.Warn("fetched ", 3, " accounts", errors.New("partial"), StructuredLogInfo{"count": 3})
	subLogger.Debug("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "fetched 3 accounts", event["message"])
	assert.Equal(t, STATE_SERVICE, event[SERVICE_KEY])
	assert.Equal(t, "partial", event["error"])
	assert.Equal(t, map[string]any{"count": float64(3)}, event["info"])
}

// TestSubLoggerKeepsContext verifies writers added to a sub-logger still receive its context.
func TestSubLoggerKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	subLogger := NewLogger(zerolog.InfoLevel, false).NewSubLogger(SERVICE_KEY, CACHE_SERVICE)
	subLogger.AddWriter(&buf, STRUCTURED)

	subLogger.Info("hello")
	assert.Contains(t, buf.String(), `"service":"cache"`)
}

// TestDisabledColors verifies unstructured output never contains ANSI codes once colors are disabled.
func TestDisabledColors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.InfoLevel, false)
	logger.AddWriter(&buf, UNSTRUCTURED)

	colors.DisableColor()
	defer colors.EnableColor()

	buffer := NewLogBuffer()
	buffer.Append(colors.Green, "foo", colors.Reset, " bar")
	logger.Info(buffer)

	assert.Contains(t, buf.String(), "foo bar")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, "foo bar", buffer.String())
	assert.Equal(t, 4, buffer.Len())
}

// TestSetLevel verifies events below the level are dropped.
func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.ErrorLevel, false)
	logger.AddWriter(&buf, STRUCTURED)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.SetLevel(zerolog.InfoLevel)
	assert.Equal(t, zerolog.InfoLevel, logger.Level())
	logger.Info("kept")
	assert.Contains(t, buf.String(), "kept")
}
