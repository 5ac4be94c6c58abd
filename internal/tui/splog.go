package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// simpleHandler writes bare messages to the console, without timestamps or level prefixes
type simpleHandler struct {
	writer    io.Writer
	debugMode bool
	quiet     *bool // shared with Splog so quiet mode can be toggled while a TUI is running
}

func (h *simpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *simpleHandler) Handle(_ context.Context, record slog.Record) error {
	if *h.quiet {
		return nil
	}
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *simpleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *simpleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// envInt reads a positive integer from the environment, returning def when unset or invalid
func envInt(name string, def int, allowZero bool) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || (v == 0 && !allowZero) {
		return def
	}
	return v
}

// newRotatingWriter creates a lumberjack logger configured from PUBSITE_LOG_* variables
func newRotatingWriter(logFilePath string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    envInt("PUBSITE_LOG_MAX_SIZE", 1, false), // megabytes
		MaxBackups: envInt("PUBSITE_LOG_MAX_BACKUPS", 2, true),
		MaxAge:     envInt("PUBSITE_LOG_MAX_AGE", 30, false), // days
		Compress:   false,
	}
}

// multiHandler fans out log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}

// Splog is the console + file logger used throughout pubsite.
// Console output is plain text; the optional log file receives timestamped
// records with structured attributes.
type Splog struct {
	logger    *slog.Logger
	writer    io.Writer
	logWriter io.WriteCloser
	quiet     bool
}

// NewSplog creates a console-only splog writing to stdout.
// Debug messages are enabled when the DEBUG environment variable is set.
func NewSplog() *Splog {
	return NewSplogWriter(os.Stdout, os.Getenv("DEBUG") != "")
}

// NewSplogWriter creates a console-only splog writing to w
func NewSplogWriter(w io.Writer, debug bool) *Splog {
	s := &Splog{writer: w}
	s.logger = slog.New(&simpleHandler{writer: w, debugMode: debug, quiet: &s.quiet})
	return s
}

// NewSplogWithConfig creates a splog that also writes to a rotating log file
// when logFilePath is non-empty.
func NewSplogWithConfig(logFilePath string) (*Splog, error) {
	return NewSplogWithConfigWriter(os.Stdout, logFilePath)
}

// NewSplogWithConfigWriter is NewSplogWithConfig with console output sent to w
func NewSplogWithConfigWriter(w io.Writer, logFilePath string) (*Splog, error) {
	s := &Splog{writer: w}

	handlers := []slog.Handler{
		&simpleHandler{writer: w, debugMode: os.Getenv("DEBUG") != "", quiet: &s.quiet},
	}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		rotating := newRotatingWriter(logFilePath)
		s.logWriter = rotating

		handlers = append(handlers, slog.NewTextHandler(rotating, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05.000"))
				}
				return a
			},
		}))
	}

	s.logger = slog.New(&multiHandler{handlers: handlers})
	return s, nil
}

// SetQuiet suppresses console output (used while the progress TUI owns the terminal).
// File logging is unaffected.
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet = quiet
}

// IsQuiet returns whether the logger is in quiet mode.
func (s *Splog) IsQuiet() bool {
	return s.quiet
}

// Logger exposes the underlying slog logger for packages that log structured attributes
func (s *Splog) Logger() *slog.Logger {
	return s.logger
}

func (s *Splog) log(level slog.Level, prefix, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Info(format string, args ...interface{}) {
	s.log(slog.LevelInfo, "", format, args...)
}

// Success writes a success message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Success(format string, args ...interface{}) {
	s.log(slog.LevelInfo, "✓ ", format, args...)
}

// Warn writes a warning message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Warn(format string, args ...interface{}) {
	s.log(slog.LevelWarn, "⚠️  ", format, args...)
}

// Error writes an error message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Error(format string, args ...interface{}) {
	s.log(slog.LevelError, "❌ ", format, args...)
}

// Debug writes a debug message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Debug(format string, args ...interface{}) {
	s.log(slog.LevelDebug, "", format, args...)
}

// Tip writes a tip message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Tip(format string, args ...interface{}) {
	s.log(slog.LevelInfo, "💡 ", format, args...)
}

// Newline writes a newline
func (s *Splog) Newline() {
	if s.quiet {
		return
	}
	_, _ = fmt.Fprintln(s.writer)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}
