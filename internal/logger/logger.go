// Package logger writes every message to a rotating file and a filtered,
// colourised subset to the console.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, in megabytes, files and days respectively
const (
	DefaultLogMaxSize    = 5
	DefaultLogMaxBackups = 5
	DefaultLogMaxAge     = 28
)

const (
	// LevelTrace sits below Debug and is only ever written to the file
	LevelTrace = slog.LevelDebug - 4

	// TimestampLayout is the wall-clock format used on console lines and reports
	TimestampLayout = "2006-01-02 15:04:05"

	// RunIDKey tags every file record with the run that produced it
	RunIDKey = "run_id"

	appDirName  = "txmon"
	logFileName = "txmon.log"
)

// LoggerInterface is what the rest of txmon logs through
type LoggerInterface interface {
	Trace(msg string, args ...any) // file only
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Close()
	GetLogPath() string
}

// LoggerOptions configures the logger. Zero values pick the defaults.
type LoggerOptions struct {
	Verbose    bool
	Timestamps bool
	Console    io.Writer // os.Stdout when nil
	LogDir     string    // %LOCALAPPDATA%\txmon when empty
	RunID      string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func (o LoggerOptions) withDefaults() LoggerOptions {
	if o.MaxSize == 0 {
		o.MaxSize = DefaultLogMaxSize
	}

	if o.MaxBackups == 0 {
		o.MaxBackups = DefaultLogMaxBackups
	}

	if o.MaxAge == 0 {
		o.MaxAge = DefaultLogMaxAge
	}

	if o.Console == nil {
		o.Console = os.Stdout
	}

	return o
}

// GetLogPath resolves the log file location for opts
func GetLogPath(opts LoggerOptions) string {
	if opts.LogDir != "" {
		return filepath.Join(opts.LogDir, logFileName)
	}

	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
	}

	return filepath.Join(base, appDirName, logFileName)
}

// PrintLogFile copies the log file to w, or to stdout when w is nil
func PrintLogFile(w io.Writer, opts LoggerOptions) error {
	if w == nil {
		w = os.Stdout
	}

	path := GetLogPath(opts)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	return nil
}

// Logger fans each call out to the file and console loggers
type Logger struct {
	file    *slog.Logger
	console *slog.Logger
	rotator *lumberjack.Logger
	path    string
}

// NewLogger creates the log directory and opens the rotating file
func NewLogger(opts LoggerOptions) (*Logger, error) {
	opts = opts.withDefaults()
	path := GetLogPath(opts)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}

	file := slog.New(slog.NewTextHandler(rotator, &slog.HandlerOptions{
		Level:       LevelTrace,
		ReplaceAttr: traceLevelName,
	}))

	if opts.RunID != "" {
		file = file.With(slog.String(RunIDKey, opts.RunID))
	}

	return &Logger{
		file:    file,
		console: slog.New(NewConsoleHandler(opts.Console, opts.Verbose, opts.Timestamps)),
		rotator: rotator,
		path:    path,
	}, nil
}

// traceLevelName renders LevelTrace as TRACE instead of DEBUG-4
func traceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}

	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}

	return a
}

// Close flushes and closes the log file
func (l *Logger) Close() {
	if l.rotator == nil {
		return
	}

	if err := l.rotator.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to close log file: %v\n", err)
	}
}

func (l *Logger) GetLogPath() string {
	return l.path
}

func (l *Logger) Trace(msg string, args ...any) {
	l.file.Log(context.Background(), LevelTrace, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.file.Debug(msg, args...)
	l.console.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.file.Info(msg, args...)
	l.console.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.file.Warn(msg, args...)
	l.console.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.file.Error(msg, args...)
	l.console.Error(msg, args...)
}

type consoleStyle struct {
	prefix string
	color  *color.Color
}

var consoleStyles = map[slog.Level]consoleStyle{
	slog.LevelError: {prefix: "ERROR: ", color: color.New(color.FgRed)},
	slog.LevelWarn:  {prefix: "WARNING: ", color: color.New(color.FgYellow)},
	slog.LevelDebug: {prefix: "VERBOSE: ", color: color.New(color.FgCyan)},
}

// ConsoleHandler prints one plain line per record, optionally timestamped
type ConsoleHandler struct {
	writer     io.Writer
	verbose    bool
	timestamps bool
}

func NewConsoleHandler(w io.Writer, verbose, timestamps bool) *ConsoleHandler {
	return &ConsoleHandler{writer: w, verbose: verbose, timestamps: timestamps}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	switch {
	case level <= LevelTrace:
		return false
	case level == slog.LevelDebug:
		return h.verbose
	default:
		return true
	}
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	style := consoleStyles[r.Level]

	line := style.prefix + r.Message
	if attrs := consoleAttrs(r); attrs != "" {
		line += " " + attrs
	}

	if h.timestamps {
		ts := r.Time
		if ts.IsZero() {
			ts = time.Now()
		}

		line = ts.Format(TimestampLayout) + " - " + line
	}

	if style.color != nil {
		_, _ = style.color.Fprintln(h.writer, line)
		return nil
	}

	_, _ = fmt.Fprintln(h.writer, line)
	return nil
}

// consoleAttrs renders key=value pairs. Numbered list lines ("  1. txrb1
// CHECKED") are printed bare so the list stays aligned.
func consoleAttrs(r slog.Record) string {
	if r.NumAttrs() == 0 || (r.Level == slog.LevelInfo && isListItem(r.Message)) {
		return ""
	}

	parts := make([]string, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.Key+"="+a.Value.String())
		return true
	})

	return strings.Join(parts, " ")
}

func isListItem(msg string) bool {
	return len(msg) >= 4 && strings.HasPrefix(msg, "  ") && msg[2] >= '0' && msg[2] <= '9'
}

func (h *ConsoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *ConsoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// NoOpLogger discards everything
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (*NoOpLogger) Trace(string, ...any) {}
func (*NoOpLogger) Debug(string, ...any) {}
func (*NoOpLogger) Info(string, ...any)  {}
func (*NoOpLogger) Warn(string, ...any)  {}
func (*NoOpLogger) Error(string, ...any) {}
func (*NoOpLogger) Close()               {}
func (*NoOpLogger) GetLogPath() string   { return "" }
