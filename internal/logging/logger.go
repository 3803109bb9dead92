// Package logging provides level-based logging for the evaluation
// engine. All output goes to stderr, keeping stdout clean for any
// piped CLI output (exit codes, report paths).
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps a slog.Logger so call sites keep the message-plus-
// key/value Info/Debug/Error calls this codebase uses elsewhere, while still
// emitting structured records when LOG_FORMAT=json is set.
type Logger struct {
	debugEnabled bool
	slog         *slog.Logger
}

// Global logger instance
var globalLogger *Logger

// Format selects the on-wire shape of log lines.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Initialize sets up the global logger. debugMode gates Debug output;
// format controls text vs. JSON encoding of each record.
func Initialize(debugMode bool, format Format) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	globalLogger = &Logger{
		debugEnabled: debugMode,
		slog:         slog.New(handler),
	}
}

// ParseFormat turns a config string into a Format, defaulting to text
// for anything unrecognized.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

func ensureInitialized() {
	if globalLogger == nil {
		Initialize(false, FormatText)
	}
}

// Info logs informational messages (always shown)
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.slog.Info(msg, args...)
}

// Debug logs debug messages (only shown when debug mode is enabled)
func Debug(msg string, args ...any) {
	ensureInitialized()
	globalLogger.slog.Debug(msg, args...)
}

// Error logs error messages (always shown)
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.slog.Error(msg, args...)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return globalLogger != nil && globalLogger.debugEnabled
}
