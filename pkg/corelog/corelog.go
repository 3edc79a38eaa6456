// Package corelog wraps slog.Logger with mediacore's debug categories,
// the way a production relay tags its own subsystems.
package corelog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"log/slog"
)

// Level is the logging verbosity level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category is a subsystem that can be debug-logged independently.
type Category string

const (
	CategorySignaling Category = "signaling"
	CategoryRTP       Category = "rtp"
	CategoryNAL       Category = "nal"
	CategoryPlayout   Category = "playout"
	CategoryAll       Category = "all"
)

// Format is the log output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds logger configuration.
type Config struct {
	Level      Level
	Format     Format
	OutputFile string

	mu         sync.RWMutex
	categories map[Category]bool
}

// NewConfig returns a Config with sane defaults: info level, text format,
// stdout output, no debug categories enabled.
func NewConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		categories: make(map[Category]bool),
	}
}

// EnableCategory turns on debug logging for one category, or every
// category when passed CategoryAll.
func (c *Config) EnableCategory(cat Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cat == CategoryAll {
		c.categories[CategorySignaling] = true
		c.categories[CategoryRTP] = true
		c.categories[CategoryNAL] = true
		c.categories[CategoryPlayout] = true
		return
	}
	c.categories[cat] = true
}

// IsCategoryEnabled reports whether a debug category is on.
func (c *Config) IsCategoryEnabled(cat Category) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categories[cat]
}

// ParseLevel converts a string flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug, nil
	case "info", "INFO":
		return LevelInfo, nil
	case "warn", "WARN", "warning":
		return LevelWarn, nil
	case "error", "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s)
	}
}

// ToSlogLevel converts a Level to its slog.Level equivalent.
func (l Level) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger wraps slog.Logger with category-gated debug helpers.
type Logger struct {
	*slog.Logger
	config *Config
	file   *os.File
}

// New builds a Logger from cfg, opening OutputFile if set.
func New(cfg *Config) (*Logger, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.OutputFile, err)
		}
		writer = f
		file = f
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.ToSlogLevel()}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
		file:   file,
	}, nil
}

// Close closes the underlying log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// With returns a Logger carrying the given attributes, preserving the
// category configuration.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), config: l.config, file: l.file}
}

// DebugSignaling logs at Debug level when CategorySignaling is enabled.
func (l *Logger) DebugSignaling(msg string, args ...any) {
	if l.config.IsCategoryEnabled(CategorySignaling) {
		l.Debug(msg, append([]any{"category", "signaling"}, args...)...)
	}
}

// DebugRTP logs at Debug level when CategoryRTP is enabled.
func (l *Logger) DebugRTP(msg string, args ...any) {
	if l.config.IsCategoryEnabled(CategoryRTP) {
		l.Debug(msg, append([]any{"category", "rtp"}, args...)...)
	}
}

// DebugNAL logs at Debug level when CategoryNAL is enabled.
func (l *Logger) DebugNAL(msg string, args ...any) {
	if l.config.IsCategoryEnabled(CategoryNAL) {
		l.Debug(msg, append([]any{"category", "nal"}, args...)...)
	}
}

// DebugPlayout logs at Debug level when CategoryPlayout is enabled.
func (l *Logger) DebugPlayout(msg string, args ...any) {
	if l.config.IsCategoryEnabled(CategoryPlayout) {
		l.Debug(msg, append([]any{"category", "playout"}, args...)...)
	}
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the process default logger, creating a plain
// stdout/info logger the first time it's called.
func Default() *Logger {
	once.Do(func() {
		logger, err := New(NewConfig())
		if err != nil {
			logger = &Logger{Logger: slog.Default(), config: NewConfig()}
		}
		defaultLogger = logger
	})
	return defaultLogger
}

// SetDefault installs logger as the process default and as slog's
// package-level default.
func SetDefault(logger *Logger) {
	defaultLogger = logger
	slog.SetDefault(logger.Logger)
}
