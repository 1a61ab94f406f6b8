package errors

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// ClassifyError maps driver, filesystem and context errors to an ErrorCode.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrCodePermission
	case errors.Is(err, fs.ErrExist):
		return ErrCodeDuplicate
	case errors.Is(err, syscall.ENOSPC):
		return ErrCodeDiskSpace
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	case errors.Is(err, sql.ErrConnDone):
		return ErrCodeConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return ErrCodeDuplicate
	case strings.Contains(msg, "constraint"):
		return ErrCodeConstraint
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database is busy"):
		return ErrCodeBusy
	case strings.Contains(msg, "malformed"):
		return ErrCodeCorruption
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"):
		return ErrCodeSchema
	case strings.Contains(msg, "sql: database is closed"):
		return ErrCodeConnection
	default:
		return ErrCodeUnknown
	}
}

// Wrap classifies err and attaches op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreError(op, err, ClassifyError(err))
}

// WrapWithContext is Wrap with extra diagnostic fields.
func WrapWithContext(op string, err error, context map[string]string) error {
	if err == nil {
		return nil
	}
	return NewStoreErrorWithContext(op, err, ClassifyError(err), context)
}

// NotConnected reports an operation attempted on a closed store.
func NotConnected(op string) error {
	return NewStoreError(op, errors.New("database not connected"), ErrCodeConnection)
}

// Invalid reports a rejected argument.
func Invalid(op, field, reason string) error {
	return NewStoreErrorWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"reason": reason,
	})
}
