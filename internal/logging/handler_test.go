// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/webauth/pkg/errutil"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse JSON: %s", buf.String())
	return entry
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "webauth", Version: "1.0.0", Format: "json", Writer: &buf})

	logger.Info("test message")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "webauth", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "webauth", Format: "text", Writer: &buf})

	logger.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "service=webauth")
}

func TestNew_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Service: "webauth", Writer: &buf}).Info("test message")
	decodeEntry(t, &buf)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "webauth", Level: slog.LevelWarn, Writer: &buf})

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "webauth", Writer: &buf})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "traced message")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "webauth", Writer: &buf})

	ctx := WithRequestID(context.Background(), "req-123")
	logger.InfoContext(ctx, "handled")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "req-123", RequestID(ctx))
}

func TestHandler_NoContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Service: "webauth", Writer: &buf}).Info("plain")

	entry := decodeEntry(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
	assert.NotContains(t, entry, "request_id")
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Service: "webauth", Writer: &buf}).With("component", "mail")

	logger.Info("queued", "id", "t1")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "mail", entry["component"])
	assert.Equal(t, "webauth", entry["service"])
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	logger := SetDefault(Options{Service: "webauth", Format: "json"})
	assert.Same(t, logger, slog.Default())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	errutil.AssertErrorCode(t, err, "LOG_LEVEL_INVALID")
}
