// Package log is the structured logging layer for the authorization
// engine. It is a thin veneer over log/slog: JSON output, a mutable
// process-wide default, and child loggers carrying a module attribute so
// every subsystem tags its records.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// level drives every logger built by New; SetLevel adjusts it at runtime.
var level slog.LevelVar

// Logger emits structured records. The zero value is not usable; build
// one with New or derive one with Module or With.
type Logger struct {
	s *slog.Logger
}

var std atomic.Pointer[Logger]

func init() {
	std.Store(New(os.Stderr))
}

// New returns a Logger writing JSON records to w at the package level.
func New(w io.Writer) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &level})
	return &Logger{s: slog.New(h)}
}

// SetLevel changes the threshold for all loggers built by New, including
// ones already handed out.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Default returns the process-wide logger.
func Default() *Logger {
	return std.Load()
}

// SetDefault replaces the process-wide logger. A nil l is ignored.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// Module derives a child tagged with a module attribute. Subsystems call
// this once and keep the child.
func (l *Logger) Module(name string) *Logger {
	return &Logger{s: l.s.With("module", name)}
}

// With derives a child carrying extra key-value context on every record.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.s.With(kv...)}
}

// Debug emits a debug record.
func (l *Logger) Debug(msg string, kv ...any) { l.s.Debug(msg, kv...) }

// Info emits an info record.
func (l *Logger) Info(msg string, kv ...any) { l.s.Info(msg, kv...) }

// Warn emits a warning record.
func (l *Logger) Warn(msg string, kv ...any) { l.s.Warn(msg, kv...) }

// Error emits an error record.
func (l *Logger) Error(msg string, kv ...any) { l.s.Error(msg, kv...) }

// Debug emits a debug record through the process-wide logger.
func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }

// Info emits an info record through the process-wide logger.
func Info(msg string, kv ...any) { Default().Info(msg, kv...) }

// Warn emits a warning record through the process-wide logger.
func Warn(msg string, kv ...any) { Default().Warn(msg, kv...) }

// Error emits an error record through the process-wide logger.
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
