// Package logging holds the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "CHAINLINK_LOG_LEVEL"

// Logger is the logger shared by all packages. It discards everything until
// Initialize is called.
var Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// logFile is the open log file, if any, so Close can release it.
var logFile *os.File

// Initialize installs a logger at the given level. An empty file logs text to
// stderr; a file path logs JSON lines to that file, creating its directory.
// Level "off" (or empty) keeps logging disabled.
func Initialize(level, file string) error {
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = env
	}

	lvl, enabled, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if !enabled {
		Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if file == "" {
		Logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	Close()
	logFile = f
	Logger = slog.New(slog.NewJSONHandler(f, opts))
	Logger.Debug("logging initialized", "log_file", file, "level", lvl.String())
	return nil
}

// ParseLevel maps a level name to a slog.Level. The second result is false
// when logging should stay off.
func ParseLevel(level string) (slog.Level, bool, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "off", "none":
		return slog.LevelInfo, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	default:
		return slog.LevelInfo, false, fmt.Errorf("unknown log level %q", level)
	}
}

// Close releases the log file opened by Initialize, if any.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
