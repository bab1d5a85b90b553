package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		level      string
		wantErr    bool
	}{
		{name: "JSON output mode", jsonOutput: true, level: "info"},
		{name: "Console output mode", jsonOutput: false, level: ""},
		{name: "Upper-case level from env", jsonOutput: false, level: "DEBUG"},
		{name: "Unknown level", jsonOutput: false, level: "loud", wantErr: true},
	}

	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		JSONOutput = false
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.level)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Logger.Sync()
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		" debug ": zapcore.DebugLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0, zapcore.WarnLevel))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1, zapcore.WarnLevel))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2, zapcore.WarnLevel))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7, zapcore.WarnLevel))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FieldsFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithComponent(ctx, "annotation")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{FieldRequestID, "req-1", FieldComponent, "annotation"}, fields)
}

func TestNopLoggerBeforeInitialize(t *testing.T) {
	require.NotNil(t, ComponentLogger("test"))
	assert.NotPanics(t, func() {
		Infow("hello", FieldPageID, "007")
	})
}
