package testutils

import (
	"fmt"
	"strings"
	"sync"
)

// TestingT is the part of testing.T the helpers need.
type TestingT interface {
	Errorf(format string, args ...any)
}

// FieldsToMap converts alternating key/value log fields to a map, reporting
// malformed entries through t.
func FieldsToMap(t TestingT, fields []any) map[string]any {
	fieldsMap := make(map[string]any)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			t.Errorf("Malformed fields slice: missing value for key at index %d", i)
			continue
		}

		key, ok := fields[i].(string)
		if !ok {
			t.Errorf("Malformed fields slice: key at index %d is not a string, got %T", i, fields[i])
			continue
		}

		fieldsMap[key] = fields[i+1]
	}

	return fieldsMap
}

// LogCall is one recorded logger invocation.
type LogCall struct {
	Level  string
	Msg    string
	Fields []any
}

// String renders the call the way a text sink would print it.
func (c LogCall) String() string {
	var b strings.Builder
	b.WriteString(c.Level)
	b.WriteString(" ")
	b.WriteString(c.Msg)
	for _, f := range c.Fields {
		b.WriteString(" ")
		fmt.Fprint(&b, f)
	}
	return b.String()
}

// RecordingLogger captures log calls. It satisfies logging.Logger.
type RecordingLogger struct {
	mu    sync.Mutex
	calls []LogCall
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (r *RecordingLogger) record(level, msg string, fields []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, LogCall{Level: level, Msg: msg, Fields: append([]any(nil), fields...)})
}

func (r *RecordingLogger) Debug(msg string, fields ...any) { r.record("debug", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...any)  { r.record("info", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...any)  { r.record("warn", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...any) { r.record("error", msg, fields) }

// Calls returns the recorded calls at level, or every call when level is "".
func (r *RecordingLogger) Calls(level string) []LogCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogCall
	for _, c := range r.calls {
		if level == "" || c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

// Output joins every recorded call into one string.
func (r *RecordingLogger) Output() string {
	var lines []string
	for _, c := range r.Calls("") {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}
