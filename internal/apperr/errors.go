// Package apperr defines the error taxonomy shared by services and adapters.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and presentation decisions.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks structurally invalid caller input. Never retried.
	KindValidation
	// KindTransient marks infrastructure failures worth retrying (timeouts, throttling).
	KindTransient
	// KindPermanent marks infrastructure failures that will not resolve on retry.
	KindPermanent
	// KindNotFound marks a missing record. Never retried.
	KindNotFound
	// KindFatal marks failures that abort a whole pipeline.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindNotFound:
		return "not_found"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified error with the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates a classified error around cause.
func Wrap(kind Kind, op string, cause error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

func Validation(op, format string, args ...any) error {
	return New(KindValidation, op, fmt.Sprintf(format, args...))
}

func NotFound(op, format string, args ...any) error {
	return New(KindNotFound, op, fmt.Sprintf(format, args...))
}

func Transient(op string, cause error) error {
	return Wrap(KindTransient, op, cause, "transient failure")
}

func Permanent(op string, cause error) error {
	return Wrap(KindPermanent, op, cause, "permanent failure")
}

func Fatal(op string, cause error) error {
	return Wrap(KindFatal, op, cause, "fatal failure")
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
