package testutil

import (
	"context"
	"sync"

	"github.com/nimburion/crudkit/pkg/observability/logger"
)

// MockLogger captures log entries for assertions. Children created with With
// share the parent's entries and prepend their fields.
type MockLogger struct {
	mu     sync.Mutex
	logs   *[]LogEntry
	fields []any
}

// LogEntry is a single captured log call.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// NewMockLogger returns an empty capturing logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{logs: &[]LogEntry{}}
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("info", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("warn", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

// With returns a child that adds args to every entry.
func (m *MockLogger) With(args ...any) logger.Logger {
	m.init()
	fields := append(append([]any{}, m.fields...), args...)
	return &MockLogger{logs: m.logs, fields: fields}
}

// WithContext adds the request ID when present.
func (m *MockLogger) WithContext(ctx context.Context) logger.Logger {
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		return m.With("request_id", requestID)
	}
	return m
}

// Entries returns a copy of everything logged so far.
func (m *MockLogger) Entries() []LogEntry {
	m.init()
	logMu.Lock()
	defer logMu.Unlock()
	return append([]LogEntry{}, (*m.logs)...)
}

// EntriesAt returns the entries logged at level.
func (m *MockLogger) EntriesAt(level string) []LogEntry {
	var out []LogEntry
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// logMu guards every entries slice; children share their parent's slice.
var logMu sync.Mutex

func (m *MockLogger) init() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logs == nil {
		m.logs = &[]LogEntry{}
	}
}

func (m *MockLogger) record(level, msg string, args []any) {
	m.init()
	all := append(append([]any{}, m.fields...), args...)
	logMu.Lock()
	defer logMu.Unlock()
	*m.logs = append(*m.logs, LogEntry{Level: level, Msg: msg, Fields: argsToMap(all)})
}

func argsToMap(args []any) map[string]any {
	fields := make(map[string]any)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
