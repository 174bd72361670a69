package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := toZapLevel(tt.in); got != tt.want {
			t.Errorf("toZapLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewReturnsIndependentLoggers(t *testing.T) {
	a := New(DebugLevel)
	b := New(ErrorLevel)
	if a == b {
		t.Fatal("expected distinct logger instances")
	}
	if !a.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger should enable debug")
	}
	if b.Desugar().Core().Enabled(zapcore.WarnLevel) {
		t.Error("error logger should not enable warn")
	}
	Nop().Infow("discarded", "k", "v")
}
