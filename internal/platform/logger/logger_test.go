package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/miyog/miyog-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSetupWithWriter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("respects level", func(t *testing.T) {
		buf := &TestLogBuffer{}
		l, err := SetupWithWriter(config.ServerConfig{LogLevel: "warn"}, buf)
		require.NoError(t, err)
		require.NotNil(t, l)

		l.Info("hidden")
		l.Warn("shown", "key", "value")

		entries := buf.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "shown", entries[0]["msg"])
		assert.Equal(t, "value", entries[0]["key"])
		assert.Equal(t, "miyog-engine", entries[0]["service"])
	})

	t.Run("invalid level warns and falls back to info", func(t *testing.T) {
		buf := &TestLogBuffer{}
		l, err := SetupWithWriter(config.ServerConfig{LogLevel: "chatty"}, buf)
		require.NoError(t, err)

		l.Debug("hidden")
		l.Info("shown")

		entries := buf.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "invalid log level configured, using default level", entries[0]["msg"])
		assert.Equal(t, "chatty", entries[0]["configured_level"])
		assert.Equal(t, "shown", entries[1]["msg"])
	})

	t.Run("installs default", func(t *testing.T) {
		buf := &TestLogBuffer{}
		l, err := SetupWithWriter(config.ServerConfig{LogLevel: "info"}, buf)
		require.NoError(t, err)
		assert.Same(t, l, slog.Default())
	})
}

func TestContextHelpers(t *testing.T) {
	l, _ := NewTestLogger()
	fallback, _ := NewTestLogger()

	t.Run("round trip", func(t *testing.T) {
		ctx := WithLogger(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
		assert.Same(t, l, FromContextOrDefault(ctx, fallback))
	})

	t.Run("nil logger leaves context untouched", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, WithLogger(ctx, nil))
	})

	t.Run("missing logger uses fallback then default", func(t *testing.T) {
		ctx := context.Background()
		assert.Same(t, fallback, FromContextOrDefault(ctx, fallback))
		assert.Same(t, slog.Default(), FromContextOrDefault(ctx, nil))
		assert.Same(t, slog.Default(), FromContext(ctx))
	})
}
