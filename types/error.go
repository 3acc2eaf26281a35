package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the system.
type ErrorCode string

// Configuration validation error codes. These are the failure kinds the
// registry pipeline (load -> validate -> match) can report; they all stem
// from static configuration and are never retried.
const (
	ErrMalformedConfig     ErrorCode = "MALFORMED_CONFIG"
	ErrDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"
	ErrUnknownCrewRef      ErrorCode = "UNKNOWN_CREW_REFERENCE"
	ErrOrphanAgentCrew     ErrorCode = "ORPHAN_AGENT_CREW"
	ErrCyclicDependency    ErrorCode = "CYCLIC_DEPENDENCY"
	ErrUnknownAgent        ErrorCode = "UNKNOWN_AGENT"
)

// Supporting service error codes
const (
	ErrConfigNotFound    ErrorCode = "CONFIG_NOT_FOUND"
	ErrWorkspaceNotReady ErrorCode = "WORKSPACE_NOT_READY"
	ErrReloadRejected    ErrorCode = "RELOAD_REJECTED"
	ErrMemoryStore       ErrorCode = "MEMORY_STORE"
	ErrRunStore          ErrorCode = "RUN_STORE"
	ErrInternalError     ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
// IDs carries the offending identifier(s); for CYCLIC_DEPENDENCY it holds
// the full cycle path in traversal order.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	IDs       []string  `json:"ids,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithIDs records the offending identifier(s).
func (e *Error) WithIDs(ids ...string) *Error {
	e.IDs = append(e.IDs, ids...)
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, looking through
// wrapped chains.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// ErrorIDs extracts the offending identifiers from an error, if any.
func ErrorIDs(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.IDs
	}
	return nil
}
