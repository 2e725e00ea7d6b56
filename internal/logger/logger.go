package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Constants for logging levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments. Development logs human readable text, production logs JSON
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// New returns stderr logger with handler picked by environment
func New(environment string, level string) (Logger, error) {
	return NewWriter(os.Stderr, environment, level)
}

// NewWriter is New with custom destination
func NewWriter(w io.Writer, environment string, level string) (Logger, error) {
	opts, err := handlerOptions(level)
	if err != nil {
		return nil, err
	}

	var h slog.Handler
	switch strings.ToLower(environment) {
	case EnvDevelopment:
		h = slog.NewTextHandler(w, opts)
	case EnvProduction:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown environment %q, expected one of: %s, %s", environment, EnvDevelopment, EnvProduction)
	}

	return &slogLogger{logger: slog.New(h)}, nil
}

// NewNoOpLogger creates a logger that discards all log messages
func NewNoOpLogger() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}

func handlerOptions(level string) (*slog.HandlerOptions, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	return &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   true,
		ReplaceAttr: replace,
	}, nil
}

// Redact hides all but the last 4 characters of a credential
func Redact(secret string) string {
	const visible = 4
	if len(secret) <= visible*2 {
		return "[REDACTED]"
	}
	return "[REDACTED]..." + secret[len(secret)-visible:]
}
