package byujwt

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	logger := NewLogrusLogger(base)

	logger.Debug("debug message")
	assert.Empty(t, hook.AllEntries(), "Debug message should not be recorded at Info level")

	logger.Info("info message", "path", "/echo")
	logger.Warn("warn message")
	logger.Error("error message", "code", 500)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "info message", entries[0].Message)
	assert.Equal(t, "/echo", entries[0].Data["path"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, 500, entries[2].Data["code"])
}

func TestZapLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core).Sugar())

	logger.Debug("debug message")
	assert.Equal(t, 0, recorded.Len(), "Debug message should not be recorded at Info level")

	logger.Info("info message", "path", "/echo")
	assert.Equal(t, 1, recorded.Len())
	assert.Equal(t, "info message", recorded.All()[0].Message)
	assert.Equal(t, "/echo", recorded.All()[0].ContextMap()["path"])

	logger.Warn("warn message")
	logger.Error("error message")
	assert.Equal(t, 3, recorded.Len())
	assert.Equal(t, zapcore.ErrorLevel, recorded.All()[2].Level)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	logger.Debug("debug message")
	assert.Empty(t, buf.String())

	logger.Warn("warn message", "path", "/echo")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "warn message", entry["message"])
	assert.Equal(t, "/echo", entry["path"])
}

func TestSlogSatisfiesLogger(t *testing.T) {
	var logger Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.NotNil(t, logger)
}

func TestFields(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1, "2": "b"}, fields([]any{"a", 1, 2, "b"}))
	assert.Equal(t, map[string]any{"a": 1, "!BADKEY": "dangling"}, fields([]any{"a", 1, "dangling"}))
}
