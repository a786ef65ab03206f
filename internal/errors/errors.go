// Package errors defines the coded error type shared by the ingestion and
// reconstruction pipeline. Data-quality problems are not errors (they are
// silent exclusions, see internal/reconstruct); errors here are the fatal
// kind: schema violations, unreadable inputs, failed writes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes grouped by taxonomy.
const (
	CodeSchemaViolation = "SCHEMA_VIOLATION"
	CodeDownloadFailed  = "DOWNLOAD_FAILED"
	CodeParseFailed     = "PARSE_FAILED"
	CodeStorageFailed   = "STORAGE_FAILED"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeStageFailed     = "STAGE_FAILED"
)

// Error is a coded pipeline error. Code identifies the failure class for
// logs and exit handling, Message is human-readable, Err is the wrapped
// cause (may be nil).
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with a formatted message.
func New(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping a cause.
func Wrap(err error, code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// SchemaViolation builds the fatal error for a malformed input table:
// missing required columns, keys of the wrong type. The engine must fail
// fast on these rather than silently coerce.
func SchemaViolation(format string, args ...any) *Error {
	return New(CodeSchemaViolation, format, args...)
}

// IsSchemaViolation reports whether err is (or wraps) a schema violation.
func IsSchemaViolation(err error) bool {
	return HasCode(err, CodeSchemaViolation)
}

// HasCode reports whether err is (or wraps) a coded error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Code extracts the error code, or "" when err carries none.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
