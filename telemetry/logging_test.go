package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestNewSlogHandler_JSONWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(&buf, "debug", "JSON"))

	logger.With("component", "db").InfoContext(spanContext(t), "query completed", "id", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "query completed", rec["msg"])
	assert.Equal(t, "db", rec["component"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])
}

func TestNewSlogHandler_TextWithoutTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(&buf, "warn", "text"))

	logger.Info("hidden")
	logger.WithGroup("g").Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "g.k=v")
	assert.NotContains(t, out, "trace_id")
}

func TestNewSlogHandler_KeepsExplicitTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(&buf, "info", "text"))

	logger.InfoContext(spanContext(t), "m", "trace_id", "custom")
	assert.Contains(t, buf.String(), "trace_id=custom")
	assert.NotContains(t, buf.String(), "4bf92f35")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "text")

	logger.LogErase(context.Background(), 9, true)
	assert.Contains(t, buf.String(), "id=9")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
