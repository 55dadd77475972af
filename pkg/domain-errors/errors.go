// Package dErrors defines the coded error taxonomy shared by services,
// handlers, and middleware. Callers classify failures by Code, never by
// message text, so response mapping stays stable as messages change.
package dErrors

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies a failure class end-to-end.
type Code string

const (
	CodeBadRequest Code = "bad_request"
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	// CodeGone marks access to a resource that still exists but is archived.
	CodeGone         Code = "gone"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeInternal     Code = "internal_error"
)

// Error is a domain error carrying a classification code, a human-readable
// message, optional structured details (surfaced in response bodies), and an
// optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetail adds a structured detail entry and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WithTimeDetail adds a timestamp detail in RFC 3339, omitting zero times.
func (e *Error) WithTimeDetail(key string, t time.Time) *Error {
	if t.IsZero() {
		return e
	}
	return e.WithDetail(key, t.UTC().Format(time.RFC3339))
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that read like
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for plain
// errors so unclassified failures always surface as server faults.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DetailsOf returns the structured details of err, or nil.
func DetailsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}
