package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger is a Logger implementation for tests that captures all log
// messages instead of writing them anywhere. Fatal does not exit.
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	zerolog  *zerolog.Logger
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	nop := zerolog.Nop()
	return &TestLogger{zerolog: &nop}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	l.messages = append(l.messages, LogMessage{Level: level, Message: msg, Fields: copied})
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

// WithField returns a logger that attaches the field to every message
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return &testFieldLogger{parent: l, fields: map[string]interface{}{key: value}}
}

// WithFields returns a logger that attaches the fields to every message
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &testFieldLogger{parent: l, fields: copied}
}

// WithError attaches an error field
func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// GetZerolog returns a no-op zerolog instance
func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return l.zerolog
}

// Messages returns a copy of all captured messages
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasMessage reports whether a message with the given level and text was logged
func (l *TestLogger) HasMessage(level, msg string) bool {
	for _, m := range l.Messages() {
		if m.Level == level && m.Message == msg {
			return true
		}
	}
	return false
}

// Reset clears all captured messages
func (l *TestLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// testFieldLogger carries bound fields into the parent's capture buffer
type testFieldLogger struct {
	parent *TestLogger
	fields map[string]interface{}
}

func (l *testFieldLogger) merged(extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (l *testFieldLogger) Debug(msg string) { l.parent.log("DEBUG", msg, l.fields) }
func (l *testFieldLogger) Info(msg string)  { l.parent.log("INFO", msg, l.fields) }
func (l *testFieldLogger) Warn(msg string)  { l.parent.log("WARN", msg, l.fields) }
func (l *testFieldLogger) Error(msg string) { l.parent.log("ERROR", msg, l.fields) }
func (l *testFieldLogger) Fatal(msg string) { l.parent.log("FATAL", msg, l.fields) }

func (l *testFieldLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("DEBUG", msg, l.merged(fields))
}

func (l *testFieldLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("INFO", msg, l.merged(fields))
}

func (l *testFieldLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("WARN", msg, l.merged(fields))
}

func (l *testFieldLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("ERROR", msg, l.merged(fields))
}

func (l *testFieldLogger) WithField(key string, value interface{}) Logger {
	return &testFieldLogger{parent: l.parent, fields: l.merged(map[string]interface{}{key: value})}
}

func (l *testFieldLogger) WithFields(fields map[string]interface{}) Logger {
	return &testFieldLogger{parent: l.parent, fields: l.merged(fields)}
}

func (l *testFieldLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *testFieldLogger) GetZerolog() *zerolog.Logger {
	return l.parent.zerolog
}
