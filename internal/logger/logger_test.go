package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitializeWithWriter(&buf, level, "json")
	t.Cleanup(func() { Initialize("info", "text") })
	return &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn")

	Info("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept", "k", "v")
	rec := lastRecord(t, buf)
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestWithAttrs(t *testing.T) {
	buf := capture(t, "debug")

	ctx := WithAttrs(context.Background(), "request_id", "req-1")
	ctx = WithAttrs(ctx, "route", "RentalService/DecideRental")
	Transition(ctx, 7, "approve", "shop", 4, "pending/unpaid", "confirmed/unpaid")

	rec := lastRecord(t, buf)
	assert.Equal(t, "Rental transition", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "RentalService/DecideRental", rec["route"])
	assert.Equal(t, float64(7), rec["rental_id"])

	Info("no context")
	assert.NotContains(t, lastRecord(t, buf), "request_id")
}

func TestGuardRejected(t *testing.T) {
	buf := capture(t, "info")

	GuardRejected(context.Background(), "cancel_rental", "cancel", errors.New("rental is completed"))
	rec := lastRecord(t, buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "cancel_rental", rec["operation"])
	assert.Equal(t, "rental is completed", rec["error"])
}
