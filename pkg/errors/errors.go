// Package errors provides structured error types for the tileroute router.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the pipeline and tile workers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (technology, tile, guides, config)
//   - NOT_FOUND / MISSING_*: Referenced resources that do not exist
//   - OUT_OF_BOUNDS, UNROUTABLE: Failures raised while routing a tile
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTech, "layer %q has no width", name)
//	if errors.Is(err, errors.ErrCodeInvalidTech) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidTile, origErr, "failed to read %s", path)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidTech   Code = "INVALID_TECH"
	ErrCodeInvalidTile   Code = "INVALID_TILE"
	ErrCodeInvalidGuide  Code = "INVALID_GUIDE"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeRunNotFound  Code = "RUN_NOT_FOUND"
	ErrCodeMissingVia   Code = "MISSING_VIA"
	ErrCodeOutOfBounds  Code = "OUT_OF_BOUNDS"

	// Routing errors
	ErrCodeUnroutable Code = "UNROUTABLE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// It checks the outermost *Error in the chain, or any error type
// exposing a Code() method.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// coder is implemented by typed errors that carry their own code.
type coder interface {
	Code() Code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		switch x := cur.(type) {
		case *Error:
			return x.Code
		case coder:
			return x.Code()
		}
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

// UnsupportedRuleError reports a technology rule variant the router
// does not enforce. It is logged and skipped, never fatal.
type UnsupportedRuleError struct {
	Layer string // Layer or cut level the rule belongs to
	Rule  string // Rule variant name as written in the technology file
}

// Error implements the error interface.
func (e *UnsupportedRuleError) Error() string {
	return fmt.Sprintf("unsupported rule %q on %s", e.Rule, e.Layer)
}

// Code returns the error code for this error type.
func (e *UnsupportedRuleError) Code() Code {
	return ErrCodeUnsupported
}
