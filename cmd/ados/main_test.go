package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/ados/config"
)

func TestInitLogger_Levels(t *testing.T) {
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
			logger := initLogger(config.LogConfig{Level: tt.level, Format: "json"})
			require.NotNil(t, logger)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
			_ = logger.Sync()
		})
	}
}

func TestInitLogger_ConsoleFormat(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "info", Format: "console", EnableCaller: true})
	require.NotNil(t, logger)
	_ = logger.Sync()
}

func TestRunDirection_Unknown(t *testing.T) {
	// 未知方向在触碰迁移器之前就返回错误
	err := runDirection(context.Background(), nil, "sideways", 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration direction")
}
