package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/billybjork/pixel-toaster/internal/config"
)

func TestLevelVerboseWinsOverConfig(t *testing.T) {
	if got := level("error", true); got != zapcore.DebugLevel {
		t.Fatalf("expected verbose to force debug, got %v", got)
	}
}

func TestLevelMapping(t *testing.T) {
	cases := []struct {
		configured string
		want       zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := level(tc.configured, false); got != tc.want {
			t.Fatalf("level(%q) = %v, want %v", tc.configured, got, tc.want)
		}
	}
}

func TestNewWritesToFileSinkWhenEnabled(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	logger, err := New(config.LoggingConfig{Level: "info", ToFile: true}, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("probe line")
	_ = logger.Sync()
}
