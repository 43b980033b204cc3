// Package logger builds the slog access logger used by the HTTP layer and
// the zap logger used by services. Both read the same Config.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Logger wraps slog.Logger for the HTTP layer.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

func (c *Config) output() io.Writer {
	if c == nil || c.Output == nil {
		return os.Stdout
	}
	return c.Output
}

func (c *Config) human() bool {
	if c == nil {
		return false
	}
	switch strings.ToLower(c.Format) {
	case "text", "console":
		return true
	}
	return false
}

func (c *Config) level() zapcore.Level {
	if c == nil {
		return zapcore.InfoLevel
	}
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil || lvl > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return lvl
}

// New creates the access logger. A nil cfg logs JSON at info to stdout.
func New(cfg *Config) *Logger {
	level := slogLevel(cfg.level())
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.human() {
		handler = slog.NewTextHandler(cfg.output(), opts)
	} else {
		handler = slog.NewJSONHandler(cfg.output(), opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

func slogLevel(l zapcore.Level) slog.Level {
	switch l {
	case zapcore.DebugLevel:
		return slog.LevelDebug
	case zapcore.WarnLevel:
		return slog.LevelWarn
	case zapcore.ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Err returns an error attribute.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}
