package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core, "noctra-test")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-9")
	ctx = context.WithValue(ctx, TraceIDKey, "trace-abc")

	l.InfoContext(ctx, "ticket purchased", zap.String("event_id", "ev-1"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "noctra-test", fields["service"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-9", fields["user_id"])
	assert.Equal(t, "trace-abc", fields["trace_id"])
	assert.Equal(t, "ev-1", fields["event_id"])
}

func TestWithContextWithoutValuesReturnsSameLogger(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	l := NewFromCore(core, "svc")
	assert.Same(t, l, l.WithContext(context.Background()))
}

func TestSetGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetGlobal(NewFromCore(core, "global"))

	Info("hello")
	DebugCtx(context.Background(), "filtered")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
}
