package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/txmon/internal/logger"
)

func TestNewLogger_DefaultOptions(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", tmpDir)

	log, err := logger.NewLogger(logger.LoggerOptions{Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer log.Close()

	logPath := log.GetLogPath()
	assert.Contains(t, logPath, "txmon.log")
	assert.True(t, filepath.IsAbs(logPath), "Log path should be absolute")
}

func TestNewLogger_CreatesLogDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", tmpDir)

	log, err := logger.NewLogger(logger.LoggerOptions{Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer log.Close()

	assert.DirExists(t, filepath.Join(tmpDir, "txmon"))
}

func TestNewLogger_CustomLogDir(t *testing.T) {
	tmpDir := t.TempDir()

	log, err := logger.NewLogger(logger.LoggerOptions{
		LogDir:  tmpDir,
		Console: &bytes.Buffer{},
	})
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, filepath.Join(tmpDir, "txmon.log"), log.GetLogPath())
}

func TestNewLogger_FallbackToUserProfile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("USERPROFILE", tmpDir)

	log, err := logger.NewLogger(logger.LoggerOptions{Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer log.Close()

	expectedPath := filepath.Join(tmpDir, "AppData", "Local", "txmon", "txmon.log")
	assert.Equal(t, expectedPath, log.GetLogPath())
}

func TestLogger_WritesToFileAndConsole(t *testing.T) {
	tmpDir := t.TempDir()
	var console bytes.Buffer

	log, err := logger.NewLogger(logger.LoggerOptions{
		LogDir:  tmpDir,
		Console: &console,
	})
	require.NoError(t, err)

	log.Info("Successfully connected to WSJT-X window", slog.Uint64("hwnd", 42))
	log.Trace("Child control", slog.String("automation_id", "autoButton"))
	log.Debug("hidden without verbose")
	log.Close()

	assert.Contains(t, console.String(), "Successfully connected to WSJT-X window hwnd=42")
	assert.NotContains(t, console.String(), "Child control", "Trace never reaches the console")
	assert.NotContains(t, console.String(), "hidden without verbose")

	data, err := os.ReadFile(log.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Successfully connected to WSJT-X window")
	assert.Contains(t, string(data), "level=TRACE")
	assert.Contains(t, string(data), "hidden without verbose")
}

func TestLogger_RunIDOnFileOnly(t *testing.T) {
	var console bytes.Buffer

	log, err := logger.NewLogger(logger.LoggerOptions{
		LogDir:  t.TempDir(),
		Console: &console,
		RunID:   "run-42",
	})
	require.NoError(t, err)

	log.Warn("Window may have closed. Attempting to reconnect...")
	log.Close()

	data, err := os.ReadFile(log.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id=run-42")
	assert.NotContains(t, console.String(), "run-42", "Console lines stay uncluttered")
}

func TestLogger_Close(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", tmpDir)

	log, err := logger.NewLogger(logger.LoggerOptions{Console: &bytes.Buffer{}})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		log.Close()
	})
}

func TestPrintLogFile(t *testing.T) {
	tmpDir := t.TempDir()
	opts := logger.LoggerOptions{LogDir: tmpDir}

	require.NoError(t, os.WriteFile(logger.GetLogPath(opts), []byte("line 1\nline 2\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, logger.PrintLogFile(&out, opts))
	assert.Equal(t, "line 1\nline 2\n", out.String())
}

func TestPrintLogFile_Missing(t *testing.T) {
	opts := logger.LoggerOptions{LogDir: t.TempDir()}

	err := logger.PrintLogFile(&bytes.Buffer{}, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConsoleHandler_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		verbose bool
		want    string
	}{
		{name: "info", level: slog.LevelInfo, want: "msg"},
		{name: "warn", level: slog.LevelWarn, want: "WARNING: msg"},
		{name: "error", level: slog.LevelError, want: "ERROR: msg"},
		{name: "debug verbose", level: slog.LevelDebug, verbose: true, want: "VERBOSE: msg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := logger.NewConsoleHandler(&buf, tt.verbose, false)

			require.True(t, h.Enabled(context.Background(), tt.level))
			require.NoError(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), tt.level, "msg", 0)))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestConsoleHandler_Attrs(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewConsoleHandler(&buf, false, false)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "Connected", 0)
	r.AddAttrs(slog.Uint64("hwnd", 42), slog.String("title", "WSJT-X"))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "Connected hwnd=42 title=WSJT-X\n", buf.String())
}

func TestConsoleHandler_Disabled(t *testing.T) {
	h := logger.NewConsoleHandler(&bytes.Buffer{}, false, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, h.Enabled(context.Background(), logger.LevelTrace))

	verbose := logger.NewConsoleHandler(&bytes.Buffer{}, true, false)
	assert.False(t, verbose.Enabled(context.Background(), logger.LevelTrace), "Trace is file-only even when verbose")
}

func TestConsoleHandler_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewConsoleHandler(&buf, false, true)

	when := time.Date(2024, 5, 17, 14, 3, 9, 0, time.Local)
	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(when, slog.LevelInfo, "'Enable Tx' is not checked.", 0)))

	assert.Equal(t, "2024-05-17 14:03:09 - 'Enable Tx' is not checked.\n", buf.String())
}

func TestConsoleHandler_EnumeratedMessageDropsAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewConsoleHandler(&buf, false, false)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "  1. txrb1 CHECKED", 0)
	r.AddAttrs(slog.Int("number", 1))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "  1. txrb1 CHECKED\n", buf.String())
	assert.Regexp(t, regexp.MustCompile(`^\s+1\.`), buf.String())
}

func TestNoOpLogger(t *testing.T) {
	log := logger.NewNoOpLogger()

	assert.NotPanics(t, func() {
		log.Trace("test")
		log.Debug("test")
		log.Info("test")
		log.Warn("test")
		log.Error("test")
		log.Close()
	})
	assert.Empty(t, log.GetLogPath())
}
