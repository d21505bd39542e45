// Package observability owns the CLI logger.
package observability

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger for command output. It discards
// everything until InitCLILogger runs.
var CLILogger = zap.NewNop()

// LoggerConfig selects level and encoding.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "console" or "json".
	Format string
}

// NewLogger builds a zap logger writing to stderr, so stdout stays free for
// command output.
func NewLogger(name string, cfg LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
		zc.Development = false
	case "json":
		zc = zap.NewProductionConfig()
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log format %q: expected console or json", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.LevelKey = "level"
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.MessageKey = "message"

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Named(name), nil
}

// InitCLILogger replaces CLILogger with a console logger at info level, or
// debug when verbose is set.
func InitCLILogger(name string, verbose bool) {
	level := "info"
	if verbose {
		level = "debug"
	}
	ConfigureCLILogger(name, LoggerConfig{Level: level, Format: "console"})
}

// ConfigureCLILogger replaces CLILogger using cfg. An invalid cfg keeps a
// console logger at info level and reports the problem through it.
func ConfigureCLILogger(name string, cfg LoggerConfig) {
	l, err := NewLogger(name, cfg)
	if err != nil {
		fallback, ferr := NewLogger(name, LoggerConfig{Level: "info", Format: "console"})
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", ferr)
			return
		}
		fallback.Warn("Invalid logging configuration, using defaults", zap.Error(err))
		l = fallback
	}
	CLILogger = l
}
