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

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
	assert.True(t, ShouldLogTrace(VerbosityTrace))
	assert.False(t, ShouldLogTrace(VerbosityDebug))
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSpace(ctx, "acme")

	FromContext(ctx, base).Infow("mutation applied", FieldCount, 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields[FieldRequestID])
	assert.Equal(t, "acme", fields[FieldSpace])
	assert.EqualValues(t, 3, fields[FieldCount])
}

func TestFromContextWithoutFields(t *testing.T) {
	base := zap.NewNop().Sugar()
	assert.Same(t, base, FromContext(context.Background(), base))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewNop().Sugar()
	assert.Same(t, l, OrNop(l))
}

func TestInitializeRecordsVerbosity(t *testing.T) {
	defer func() {
		Logger = zap.NewNop().Sugar()
		Verbosity = 0
	}()
	require.NoError(t, InitializeWithVerbosity(false, VerbosityTrace))
	assert.Equal(t, VerbosityTrace, Verbosity)
	assert.True(t, ShouldLogTrace(Verbosity))
}
