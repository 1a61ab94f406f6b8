package logging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	ErrLoggerFailedToBuild = errors.New("failed to build the logger")
	ErrLoggerInvalidLevel  = errors.New("invalid log-level")
	ErrLoggerInvalidMode   = errors.New("invalid log-mode")
)

// Logger is the structured logger injected into services and stores.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Config selects the encoder and minimum level.
type Config struct {
	Level string // debug, info, warn, error
	Mode  string // dev or prod
}

// DefaultConfig logs JSON at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Mode: "prod"}
}

// NewZap builds a zap logger for cfg.
func NewZap(cfg Config) (*zap.Logger, error) {
	var config zap.Config
	switch strings.ToLower(cfg.Mode) {
	case "dev":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeCaller = nil
	case "prod":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("%w: %s",
			ErrLoggerInvalidMode, cfg.Mode,
		)
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logLevel, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w",
			ErrLoggerInvalidLevel, cfg.Level, err,
		)
	}
	config.Level = logLevel

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w",
			ErrLoggerFailedToBuild, err,
		)
	}
	return l, nil
}

// ZapLogger implements Logger on a sugared zap logger.
type ZapLogger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// NewLogger builds a Logger for cfg.
func NewLogger(cfg Config) (*ZapLogger, error) {
	l, err := NewZap(cfg)
	if err != nil {
		return nil, err
	}
	return NewFromZap(l), nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{base: l, sugar: l.Sugar()}
}

// NewDefaultLogger returns a production logger, or a no-op logger when one
// cannot be built.
func NewDefaultLogger() Logger {
	l, err := NewLogger(DefaultConfig())
	if err != nil {
		return NewNopLogger()
	}
	return l
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return NewFromZap(zap.NewNop())
}

// Zap exposes the underlying logger.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.base
}

// Named returns a child logger with the given name segment.
func (l *ZapLogger) Named(name string) *ZapLogger {
	return NewFromZap(l.base.Named(name))
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.sugar.Debugw(msg, fields...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.sugar.Infow(msg, fields...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.sugar.Warnw(msg, fields...)
}

func (l *ZapLogger) Error(msg string, fields ...interface{}) {
	l.sugar.Errorw(msg, fields...)
}

// StoreError is the view of a classified storage error used for logging.
// It is declared here so that this package does not import the errors
// package.
type StoreError interface {
	Error() string
	GetCode() string
	IsRetryable() bool
	GetContext() map[string]string
	GetTimestamp() time.Time
}

// LogStoreError logs a storage failure with its classification.
func LogStoreError(logger Logger, err error, operation string, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	var storeErr StoreError
	if errors.As(err, &storeErr) {
		fields := []interface{}{
			"operation", operation,
			"error_code", storeErr.GetCode(),
			"retryable", storeErr.IsRetryable(),
			"timestamp", storeErr.GetTimestamp(),
		}
		for k, v := range storeErr.GetContext() {
			fields = append(fields, k, v)
		}
		for k, v := range context {
			fields = append(fields, k, v)
		}
		logger.Error("Store operation failed", append(fields, "error", err.Error())...)
		return
	}

	fields := []interface{}{
		"operation", operation,
		"error_type", fmt.Sprintf("%T", err),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}
	logger.Error("Unexpected store error", append(fields, "error", err.Error())...)
}

// LogOperation logs a completed operation and its duration.
func LogOperation(logger Logger, operation string, duration time.Duration, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	fields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}
	logger.Debug("Operation completed", fields...)
}
