package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) || logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected info level by default")
	}
	_ = logger.Sync()
}

func TestNewLevelsAndFormats(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		wantErr bool
	}{
		{level: "debug", format: "json", enabled: zapcore.DebugLevel},
		{level: "warn", format: "console", enabled: zapcore.WarnLevel},
		{level: "error", format: "json", enabled: zapcore.ErrorLevel},
		{level: "verbose", format: "json", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			logger, err := New(tc.level, tc.format)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !logger.Core().Enabled(tc.enabled) {
				t.Fatalf("expected %s to be enabled", tc.enabled)
			}
			if tc.enabled > zapcore.DebugLevel && logger.Core().Enabled(tc.enabled-1) {
				t.Fatalf("expected levels below %s to be disabled", tc.enabled)
			}
		})
	}
}
