// Package apperr defines the error kinds surfaced by the tracker to its callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. Kinds are sentinels, so callers can write
// errors.Is(err, apperr.NotFound).
type Kind struct{ name string }

func (k *Kind) Error() string { return k.name }

var (
	NotFound   = &Kind{"not found"}
	Forbidden  = &Kind{"forbidden"}
	Validation = &Kind{"validation"}
	Conflict   = &Kind{"conflict"}
)

// Error carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    *Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.name, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.name, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func New(kind *Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind *Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) *Error {
	return New(Forbidden, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

// Message returns the user-facing message of err, or a generic fallback when err
// is not an *Error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
