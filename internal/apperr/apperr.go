// Package apperr defines the structured error type shared across the
// preview pipeline.
//
// Errors carry a category, a short machine code, and an HTTP-ish status so
// the transport layer can map a failure to a response without inspecting
// message text. Not-found conditions (missing tenant, stale theme version)
// travel as values of this type rather than panics; render failures wrap
// the underlying engine error as the cause.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for handling decisions.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindRender     Kind = "render"
	KindInternal   Kind = "internal"
)

// Error is a structured error with category, code, and transport status.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("[%s] %s", e.Code, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
	}
	return false
}

// NotFound creates a not-found error with a 404 status.
func NotFound(code, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    code,
		Status:  404,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a validation error with a 422 status.
func Validation(code, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    code,
		Status:  422,
		Message: fmt.Sprintf(format, args...),
	}
}

// Storage creates a storage error wrapping cause.
func Storage(code string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindStorage,
		Code:    code,
		Status:  500,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Render creates a render error wrapping the engine failure.
func Render(code string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindRender,
		Code:    code,
		Status:  500,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Internal creates an internal error wrapping cause.
func Internal(code string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    code,
		Status:  500,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// StatusOf returns the transport status for err, defaulting to 500 for
// errors that are not *Error values.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return 500
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}
