package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestFromConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")

	cfg := FromConfig("warn", "")
	assert.Equal(t, slog.LevelWarn, cfg.Level)
	assert.Equal(t, "text", cfg.Format)

	cfg = FromConfig("bogus", "json")
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	t.Setenv("APP_ENV", "production")
	assert.Equal(t, "json", FromConfig("info", "text").Format)
}

func TestWithContextAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	ctx := WithConnectionID(context.Background(), "conn-1")
	ctx = WithRequestID(ctx, "req-1")
	log.WithContext(ctx).WithComponent("bridge").Info("handled")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "conn-1", lines[0]["connection_id"])
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "bridge", lines[0]["component"])
	assert.Equal(t, GetInstanceID(), lines[0]["instance_id"])
}

func TestWithContextSkipsEmptyIDs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	log.WithContext(WithRequestID(context.Background(), "")).Info("no ids")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "request_id")
	assert.NotContains(t, lines[0], "connection_id")
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	require.NoError(t, log.LogOperation(context.Background(), "ok_op", func() error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, log.LogOperation(context.Background(), "bad_op", func() error { return boom }), boom)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "operation completed", lines[1]["msg"])
	assert.Equal(t, "ok_op", lines[1]["operation"])
	assert.Equal(t, "operation failed", lines[3]["msg"])
	assert.Equal(t, "WARN", lines[3]["level"])
	assert.Equal(t, "boom", lines[3]["error"])
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().Error("dropped")
	})
}

func TestGenerateID(t *testing.T) {
	assert.NotEqual(t, GenerateID(), GenerateID())
	assert.Len(t, GenerateID(), 36)
}
