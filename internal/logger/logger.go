package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EnvLevel is the environment variable holding the log level
const EnvLevel = "BUILDERR_LOG"

func levelFromString(s string) (l slog.Level, ok bool) {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "info", "inf":
		return slog.LevelInfo, true
	case "warn", "wrn":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// InitLogger points the default slog logger at the file path. An unknown
// level falls back to info.
func InitLogger(path, level string) error {
	loglevel, ok := levelFromString(level)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	// slog defaults to logging in the order of time, level, msg, and other attributes.
	handler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: loglevel})
	slog.SetDefault(slog.New(handler))

	if !ok && level != "" {
		slog.Warn("unknown log level, using info", "level", level)
	}
	return nil
}

// LevelFromEnv returns the level configured in the environment, default info
func LevelFromEnv() string {
	if level := os.Getenv(EnvLevel); level != "" {
		return level
	}
	return "info"
}
