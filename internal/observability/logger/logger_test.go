package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFrom_FallsBackToGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	From(context.Background()).Info("hello", ProviderID("facebook"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "facebook", entries[0].ContextMap()["provider_id"])
	}
}

func TestFrom_UsesScopedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	scoped := zap.New(core).With(RequestID("r-1"))
	ctx := ToContext(context.Background(), scoped)

	From(ctx).Debug("scoped", LocalUserID("u-1"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "r-1", fields["request_id"])
		assert.Equal(t, "u-1", fields["local_user_id"])
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}
