package logging

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"launchbox/internal/testutils"
)

type fakeStoreError struct {
	code      string
	retryable bool
	context   map[string]string
	timestamp time.Time
}

func (e *fakeStoreError) Error() string                 { return "database is locked" }
func (e *fakeStoreError) GetCode() string               { return e.code }
func (e *fakeStoreError) IsRetryable() bool             { return e.retryable }
func (e *fakeStoreError) GetContext() map[string]string { return e.context }
func (e *fakeStoreError) GetTimestamp() time.Time       { return e.timestamp }

func newObserved(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewFromZap(zap.New(core)), logs
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "prod info", cfg: Config{Level: "info", Mode: "prod"}},
		{name: "dev debug", cfg: Config{Level: "debug", Mode: "DEV"}},
		{name: "bad mode", cfg: Config{Level: "info", Mode: "loud"}, wantErr: ErrLoggerInvalidMode},
		{name: "bad level", cfg: Config{Level: "chatty", Mode: "prod"}, wantErr: ErrLoggerInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l.Zap() == nil {
				t.Fatal("expected underlying zap logger")
			}
		})
	}
}

func TestZapLogger_Levels(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	l.Debug("d", "k", 1)
	l.Info("i", "k", 2)
	l.Warn("w", "k", 3)
	l.Error("e", "k", 4)

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d: expected level %v, got %v", i, wantLevels[i], e.Level)
		}
		if got := e.ContextMap()["k"]; got != int64(i+1) {
			t.Errorf("entry %d: expected field k=%d, got %v", i, i+1, got)
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("nothing")
	l.Error("still nothing", "k", "v")
}

func TestLogStoreError(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	err := &fakeStoreError{
		code:      "BUSY",
		retryable: true,
		context:   map[string]string{"table": "icon_cache"},
		timestamp: time.Unix(0, 0),
	}
	LogStoreError(l, err, "SaveIcon", map[string]interface{}{"attempt": 2})

	entries := logs.FilterMessage("Store operation failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["error_code"] != "BUSY" {
		t.Errorf("expected error_code BUSY, got %v", fields["error_code"])
	}
	if fields["retryable"] != true {
		t.Errorf("expected retryable true, got %v", fields["retryable"])
	}
	if fields["table"] != "icon_cache" {
		t.Errorf("expected table context, got %v", fields["table"])
	}
	if fields["operation"] != "SaveIcon" {
		t.Errorf("expected operation SaveIcon, got %v", fields["operation"])
	}
}

func TestLogStoreError_PlainError(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	LogStoreError(l, errors.New("boom"), "LoadIcon", nil)

	entries := logs.FilterMessage("Unexpected store error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["error_type"]; got != "*errors.errorString" {
		t.Errorf("unexpected error_type %v", got)
	}
}

func TestLogOperation(t *testing.T) {
	rec := testutils.NewRecordingLogger()

	LogOperation(rec, "PruneIcons", 1500*time.Millisecond, map[string]interface{}{"removed": 3})

	calls := rec.Calls("debug")
	if len(calls) != 1 {
		t.Fatalf("expected one debug call, got %d", len(calls))
	}
	fields := testutils.FieldsToMap(t, calls[0].Fields)
	if fields["duration_ms"] != int64(1500) {
		t.Errorf("expected duration_ms 1500, got %v", fields["duration_ms"])
	}
	if fields["removed"] != 3 {
		t.Errorf("expected removed 3, got %v", fields["removed"])
	}
}

func TestWailsLoggerAdapter(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	a := NewWailsLoggerAdapter(l)

	a.Print("print")
	a.Trace("trace")
	a.Debug("debug")
	a.Info("info")
	a.Warning("warning")
	a.Error("error")
	a.Fatal("fatal")

	if logs.Len() != 7 {
		t.Fatalf("expected 7 entries, got %d", logs.Len())
	}
	for _, e := range logs.All() {
		if e.ContextMap()["source"] != "wails" {
			t.Errorf("entry %q missing source field", e.Message)
		}
	}
	if got := logs.FilterMessage("fatal").All()[0].Level; got != zapcore.ErrorLevel {
		t.Errorf("expected fatal at error level, got %v", got)
	}
}
