package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
	once          sync.Once
	mu            sync.RWMutex
)

// Initialize sets up the structured logger
func Initialize() {
	once.Do(func() {
		setDefault(newJSONLogger(os.Stdout))
	})
}

func newJSONLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}))
}

func setDefault(l *slog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Get returns the default structured logger
func Get() *slog.Logger {
	Initialize() // sync.Once ensures it only runs once
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetOutput redirects the JSON log stream, keeping the current level.
func SetOutput(w io.Writer) {
	Initialize()
	setDefault(newJSONLogger(w))
}

// SetLevel changes the minimum level of the default logger at runtime.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Level returns the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// ParseLevel converts a config value such as "debug" or "WARN" to a level.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// Info logs an info level message
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// InfoContext logs an info level message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

// Warn logs a warning level message
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// WarnContext logs a warning level message with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

// Error logs an error level message
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

// ErrorContext logs an error level message with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// Debug logs a debug level message
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

// DebugContext logs a debug level message with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}
