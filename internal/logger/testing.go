package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a quiet logger for tests (WARN and above, on stdout).
// Setting TEST_DEBUG turns on debug output.
func NewTestLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("TEST_DEBUG") != "" {
		level = slog.LevelDebug
	}

	return NewLogger(Config{Level: level, Format: "text", Output: os.Stdout})
}
