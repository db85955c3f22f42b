package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel, enableJSON bool) (*StructuredLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := NewStructuredLogger(&LoggerConfig{
		Level:            level,
		Component:        "test",
		EnableJSON:       enableJSON,
		Output:           buf,
		IncludeTimestamp: true,
	})
	return logger, buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected LogLevel
	}{
		{"trace", LogLevelTrace},
		{"debug", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"fatal", LogLevelFatal},
		{"DEBUG", LogLevelDebug},
		{"  info  ", LogLevelInfo},
		{"bogus", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.name), "level name %q", tt.name)
	}
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelWarn, false)

	logger.Debug("dropped")
	logger.Info("also dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	output := buf.String()
	assert.NotContains(t, output, "dropped")
	assert.Contains(t, output, "kept")
	assert.Contains(t, output, "kept too")
}

func TestJSONOutputCarriesFields(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelDebug, true)

	logger.WithField("checksum", "abc123").WithOperation("materialize").Info("started")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "test", entry.Component)
	assert.Equal(t, "started", entry.Message)
	assert.Equal(t, "materialize", entry.Operation)
	assert.Equal(t, "abc123", entry.Context["checksum"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelDebug, true)

	_ = logger.WithField("checksum", "abc123")
	logger.Info("no fields")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry.Context, "checksum")
}

func TestWithErrorNilIsNoop(t *testing.T) {
	logger, _ := newBufferLogger(LogLevelDebug, true)
	assert.Same(t, logger, logger.WithError(nil))
}

func TestHumanFormat(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelDebug, false)

	logger.WithField("version", 5).Warn("promotion rejected")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[0], "[WARN]")
	assert.Contains(t, lines[0], "promotion rejected")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "version=5")
}

func TestWithLevelIsIndependent(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelInfo, false)

	verbose := logger.WithLevel(LogLevelTrace)
	verbose.Trace("child trace")
	assert.Contains(t, buf.String(), "child trace")

	buf.Reset()
	logger.Trace("parent trace")
	assert.Empty(t, buf.String(), "parent threshold must be unaffected by the child's")
}

func TestSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(LogLevelInfo, false)

	logger.Debug("invisible")
	assert.Empty(t, buf.String())

	logger.SetLevel(LogLevelDebug)
	assert.True(t, logger.IsLevelEnabled(LogLevelDebug))
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
