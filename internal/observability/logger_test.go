package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggerConfig
		level   zapcore.Level
		wantErr bool
	}{
		{"console info", LoggerConfig{Level: "info", Format: "console"}, zapcore.InfoLevel, false},
		{"default format", LoggerConfig{Level: "warn"}, zapcore.WarnLevel, false},
		{"json debug", LoggerConfig{Level: "DEBUG", Format: "json"}, zapcore.DebugLevel, false},
		{"bad level", LoggerConfig{Level: "loud"}, 0, true},
		{"bad format", LoggerConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger("test", tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.level-1))
			}
		})
	}
}

func TestInitCLILogger(t *testing.T) {
	orig := CLILogger
	defer func() { CLILogger = orig }()

	InitCLILogger("test", false)
	require.NotNil(t, CLILogger)
	assert.False(t, CLILogger.Core().Enabled(zapcore.DebugLevel))

	InitCLILogger("test", true)
	assert.True(t, CLILogger.Core().Enabled(zapcore.DebugLevel))
}

func TestConfigureCLILogger_FallsBack(t *testing.T) {
	orig := CLILogger
	defer func() { CLILogger = orig }()

	ConfigureCLILogger("test", LoggerConfig{Level: "nope"})
	require.NotNil(t, CLILogger)
	assert.True(t, CLILogger.Core().Enabled(zapcore.InfoLevel))
}
