// Package logging builds the zap logger shared by all components.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates the process logger. Debug mode uses zap's development
// config (console output, debug level); otherwise a production JSON logger
// at the given level is returned.
func New(level string, debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	return config.Build()
}

// ParseLevel maps a level name to a zap level, falling back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
