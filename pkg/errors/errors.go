// Package errors provides structured error types for visio2svg.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Fatal conversion errors abort a whole document: UNSUPPORTED_FORMAT,
// GENERATION_FAILED and NO_OUTPUT. DECODE_FAILED and CONVERSION_FAILED
// describe problems with a single embedded image; the post-treatment pass
// reports them and carries on.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnsupported, "unsupported file format")
//	if errors.Is(err, errors.ErrCodeUnsupported) {
//	    // Handle unsupported input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeGenerationFailed, origErr, "SVG generation failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidMode  Code = "INVALID_MODE"
	ErrCodeInvalidName  Code = "INVALID_NAME"

	// Whole-document conversion errors
	ErrCodeUnsupported      Code = "UNSUPPORTED_FORMAT"
	ErrCodeGenerationFailed Code = "GENERATION_FAILED"
	ErrCodeNoOutput         Code = "NO_OUTPUT"

	// Embedded image errors
	ErrCodeDecodeFailed     Code = "DECODE_FAILED"
	ErrCodeConversionFailed Code = "CONVERSION_FAILED"

	// External tool errors
	ErrCodeToolNotFound Code = "TOOL_NOT_FOUND"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err aborts a whole document conversion, as
// opposed to a problem local to one embedded image.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeDecodeFailed, ErrCodeConversionFailed:
		return false
	}
	return err != nil
}
