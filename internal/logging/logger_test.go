package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zap.DebugLevel},
		{"DEBUG", zap.DebugLevel},
		{"warn", zap.WarnLevel},
		{"warning", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"info", zap.InfoLevel},
		{"", zap.InfoLevel},
		{"verbose", zap.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewProductionLevel(t *testing.T) {
	logger, err := New("warn", false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zap.InfoLevel) {
		t.Error("Expected info to be disabled at warn level")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Error("Expected warn to be enabled at warn level")
	}
}
