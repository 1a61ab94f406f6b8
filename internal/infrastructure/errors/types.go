package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode classifies storage and filesystem failures.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound
	ErrCodeDuplicate
	ErrCodeConstraint
	ErrCodeConnection
	ErrCodeTimeout
	ErrCodeValidation
	ErrCodePermission
	ErrCodeDiskSpace
	ErrCodeCorruption
	ErrCodeInternal
	ErrCodeBusy
	ErrCodeSchema
)

var codeNames = map[ErrorCode]string{
	ErrCodeNotFound:   "NOT_FOUND",
	ErrCodeDuplicate:  "DUPLICATE",
	ErrCodeConstraint: "CONSTRAINT",
	ErrCodeConnection: "CONNECTION",
	ErrCodeTimeout:    "TIMEOUT",
	ErrCodeValidation: "VALIDATION",
	ErrCodePermission: "PERMISSION",
	ErrCodeDiskSpace:  "DISK_SPACE",
	ErrCodeCorruption: "CORRUPTION",
	ErrCodeInternal:   "INTERNAL",
	ErrCodeBusy:       "BUSY",
	ErrCodeSchema:     "SCHEMA",
}

func (e ErrorCode) String() string {
	if name, ok := codeNames[e]; ok {
		return name
	}
	return "UNKNOWN"
}

// StoreError is a classified failure of a store operation.
type StoreError struct {
	Op        string            // operation name
	Err       error             // underlying error
	Code      ErrorCode         // classification
	Retryable bool              // whether retrying may succeed
	Context   map[string]string // extra diagnostic fields; never full paths
	Timestamp time.Time
}

func (e *StoreError) Error() string {
	if e == nil {
		return "store error"
	}

	var parts []string
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Code != ErrCodeUnknown {
		parts = append(parts, "code="+e.Code.String())
	}
	if e.Retryable {
		parts = append(parts, "retryable=true")
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
	}

	suffix := ""
	if len(parts) > 0 {
		suffix = " [" + strings.Join(parts, " ") + "]"
	}
	if e.Err != nil {
		return e.Err.Error() + suffix
	}
	return "store error" + suffix
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *StoreError by code, or the wrapped error.
func (e *StoreError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*StoreError); ok {
		return e.Code == t.Code
	}
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

func (e *StoreError) IsRetryable() bool {
	return e != nil && e.Retryable
}

// GetCode, GetContext and GetTimestamp satisfy logging.StoreError.
func (e *StoreError) GetCode() string {
	if e == nil {
		return ErrCodeUnknown.String()
	}
	return e.Code.String()
}

func (e *StoreError) GetContext() map[string]string {
	if e == nil || e.Context == nil {
		return map[string]string{}
	}
	return e.Context
}

func (e *StoreError) GetTimestamp() time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Timestamp
}

// NewStoreError builds a StoreError and derives its retryability from code.
func NewStoreError(op string, err error, code ErrorCode) *StoreError {
	return &StoreError{
		Op:        op,
		Err:       err,
		Code:      code,
		Retryable: isRetryableError(code, err),
		Context:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// NewStoreErrorWithContext is NewStoreError with a copy of context attached.
func NewStoreErrorWithContext(op string, err error, code ErrorCode, context map[string]string) *StoreError {
	storeErr := NewStoreError(op, err, code)
	for k, v := range context {
		storeErr.Context[k] = v
	}
	return storeErr
}

func isRetryableError(code ErrorCode, err error) bool {
	switch code {
	case ErrCodeConnection, ErrCodeTimeout, ErrCodeBusy:
		return true
	case ErrCodeUnknown:
		if err == nil {
			return false
		}
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "temporary") ||
			strings.Contains(msg, "busy") ||
			strings.Contains(msg, "locked")
	default:
		return false
	}
}

// HasCode reports whether err wraps a StoreError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}

func IsNotFound(err error) bool   { return HasCode(err, ErrCodeNotFound) }
func IsBusy(err error) bool       { return HasCode(err, ErrCodeBusy) }
func IsPermission(err error) bool { return HasCode(err, ErrCodePermission) }
func IsCorruption(err error) bool { return HasCode(err, ErrCodeCorruption) }

// IsRetryable reports whether err wraps a retryable StoreError.
func IsRetryable(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Retryable
}
