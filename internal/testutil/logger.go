package testutil

import (
	"strings"
	"sync"
)

// LogEntry is one message captured by RecordingLogger
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger implements logger.LoggerInterface and keeps every message
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Trace(msg string, args ...any) { l.record("TRACE", msg, args) }
func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }
func (l *RecordingLogger) Close()                        {}
func (l *RecordingLogger) GetLogPath() string            { return "" }

// Contains reports whether any message contains substr
func (l *RecordingLogger) Contains(substr string) bool {
	return l.Count(substr) > 0
}

// Count returns how many messages contain substr
func (l *RecordingLogger) Count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.Entries {
		if strings.Contains(e.Msg, substr) {
			n++
		}
	}

	return n
}

// Messages returns every captured message at the given level, or all when level is empty
func (l *RecordingLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var msgs []string
	for _, e := range l.Entries {
		if level == "" || e.Level == level {
			msgs = append(msgs, e.Msg)
		}
	}

	return msgs
}
