package slogutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelSilent is above every standard level; loggers at this level print nothing.
const LevelSilent = slog.Level(100)

// Format selects the log line encoding.
type Format string

const (
	// FormatHuman is the TextHandler line format
	FormatHuman Format = "human"
	// FormatJSON uses slog's JSON handler
	FormatJSON Format = "json"
)

// NewLogger creates a new slog.Logger with the archlens text format.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewHandler returns the handler for the given format.
func NewHandler(w io.Writer, level slog.Level, format Format) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// NewFileLogger creates a new slog.Logger that writes to a file.
// The file is opened in append mode and created if it doesn't exist.
func NewFileLogger(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	f, err := openLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f, level), f, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// NewDiscardLogger creates a logger that discards all output.
// Useful for tests or when logging should be completely suppressed.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelSilent}))
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NewDiscardLogger()
	}
	return l
}

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a slog.Level.
// - quiet=true: returns a level that suppresses all logs
// - verbosity=0: warn (default for CLI)
// - verbosity=1: info
// - verbosity>=2: debug
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return LevelSilent
	}
	switch verbosity {
	case 0:
		return slog.LevelWarn
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Options configures Setup.
type Options struct {
	Stderr    io.Writer  // console destination; nil disables console logging
	Level     slog.Level // console level
	Format    Format     // console format
	FilePath  string     // optional log file; always written in human format
	FileLevel slog.Level // level for the log file
	MaxSize   string     // rotate the log file past this size, e.g. "10MB"
	MaxBackup int        // rotated files to keep
}

// Setup builds the CLI logger: console output, optionally teed with a log file.
// The returned closer must be closed when the command finishes.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	var handlers []slog.Handler
	if opts.Stderr != nil {
		handlers = append(handlers, NewHandler(opts.Stderr, opts.Level, opts.Format))
	}

	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		w, err := OpenRotating(opts.FilePath, ParseSize(opts.MaxSize), opts.MaxBackup)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, NewTextHandler(w, &slog.HandlerOptions{Level: opts.FileLevel}))
		closer = w
	}

	switch len(handlers) {
	case 0:
		return NewDiscardLogger(), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(NewTeeHandler(handlers...)), closer, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// TeeHandler writes logs to multiple handlers.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler creates a handler that writes to all provided handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

// Enabled returns true if any handler is enabled for the level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes the record to every enabled handler and joins their errors.
func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a new TeeHandler with attributes added to all handlers.
func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: next}
}

// WithGroup returns a new TeeHandler with the group added to all handlers.
func (t *TeeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: next}
}
