package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel(""))
}

func TestLogSalePendingWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)

	l.LogSalePending(context.Background(), "sale-1", 2, "inventory timeout")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Sale Pending", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "sale-1", record["sale_id"])
	assert.Equal(t, float64(2), record["attempts"])
}

func TestLogExternalCallLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)

	l.LogExternalCall(context.Background(), "proxy", "queryOne", time.Millisecond, nil)
	assert.Empty(t, buf.String())

	l.LogExternalCall(context.Background(), "proxy", "queryOne", time.Millisecond, errors.New("timeout"))
	assert.Contains(t, buf.String(), "External Call Failed")
}
