package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, "json")
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestZapWrapper_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "intake"})

	log.WithError(errors.New("disk full")).Error("write failed", map[string]interface{}{
		"path": "/uploads/x.pdf",
	})

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "intake", fields["component"])
	assert.Equal(t, "/uploads/x.pdf", fields["path"])
	assert.Equal(t, "disk full", fields["error"])
}

func TestContextHelpers(t *testing.T) {
	fallback := NewNoOpLogger()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := NewTestLogger(t)
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))

	assert.Equal(t, "unknown", RequestIDFromContext(context.Background()))
	assert.Equal(t, "req-1", RequestIDFromContext(WithRequestID(ctx, "req-1")))
}
