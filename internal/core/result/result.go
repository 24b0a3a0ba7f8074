// Package result contains the three-state outcome type used by every service operation.
// This is part of the Functional Core - no I/O, only pure functions.
package result

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by Get when the result is still Loading.
var ErrNotReady = errors.New("result not ready: still loading")

// Unit is the value carried by a successful operation that produces nothing.
type Unit struct{}

// Result is a sealed union of Success, Failure and Loading.
// Handle it with a type switch or Match; no other implementations exist.
type Result[T any] interface {
	isResult(T)
}

// Success carries a produced value.
type Success[T any] struct {
	Value T
}

// Failure carries the cause of a failed operation and a human-readable message.
type Failure[T any] struct {
	Cause   error
	Message string
}

// Loading is the in-progress state. It carries no payload.
type Loading[T any] struct{}

func (Success[T]) isResult(T) {}
func (Failure[T]) isResult(T) {}
func (Loading[T]) isResult(T) {}

// Ok wraps v in a Success.
func Ok[T any](v T) Result[T] {
	return Success[T]{Value: v}
}

// Fail wraps err in a Failure whose message is err's text.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Failure[T]{Cause: err, Message: err.Error()}
}

// FailWithMessage wraps err in a Failure with a caller-chosen message.
func FailWithMessage[T any](err error, message string) Result[T] {
	if err == nil {
		err = errors.New(message)
	}
	return Failure[T]{Cause: err, Message: message}
}

// Pending returns the Loading state.
func Pending[T any]() Result[T] {
	return Loading[T]{}
}

// Map transforms a Success value. Failure keeps its cause and message and
// Loading stays Loading; fn is not called for either.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch v := r.(type) {
	case Success[T]:
		return Success[U]{Value: fn(v.Value)}
	case Failure[T]:
		return Failure[U]{Cause: v.Cause, Message: v.Message}
	default:
		return Loading[U]{}
	}
}

// OnSuccess calls fn with the value if r is a Success and returns r unchanged.
func OnSuccess[T any](r Result[T], fn func(T)) Result[T] {
	if v, ok := r.(Success[T]); ok {
		fn(v.Value)
	}
	return r
}

// OnError calls fn with the cause and message if r is a Failure and returns r unchanged.
func OnError[T any](r Result[T], fn func(cause error, message string)) Result[T] {
	if v, ok := r.(Failure[T]); ok {
		fn(v.Cause, v.Message)
	}
	return r
}

// OnLoading calls fn if r is Loading and returns r unchanged.
func OnLoading[T any](r Result[T], fn func()) Result[T] {
	if _, ok := r.(Loading[T]); ok {
		fn()
	}
	return r
}

// Value returns the Success value and true, or the zero value and false.
func Value[T any](r Result[T]) (T, bool) {
	if v, ok := r.(Success[T]); ok {
		return v.Value, true
	}
	var zero T
	return zero, false
}

// Get returns the Success value. A Failure returns its cause; Loading returns ErrNotReady.
func Get[T any](r Result[T]) (T, error) {
	var zero T
	switch v := r.(type) {
	case Success[T]:
		return v.Value, nil
	case Failure[T]:
		if v.Cause != nil {
			return zero, v.Cause
		}
		return zero, errors.New(v.Message)
	case Loading[T]:
		return zero, ErrNotReady
	default:
		return zero, fmt.Errorf("unknown result variant %T", r)
	}
}

// Match folds r into a single value.
func Match[T, R any](r Result[T], onSuccess func(T) R, onError func(error, string) R, onLoading func() R) R {
	switch v := r.(type) {
	case Success[T]:
		return onSuccess(v.Value)
	case Failure[T]:
		return onError(v.Cause, v.Message)
	default:
		return onLoading()
	}
}

func IsSuccess[T any](r Result[T]) bool {
	_, ok := r.(Success[T])
	return ok
}

func IsFailure[T any](r Result[T]) bool {
	_, ok := r.(Failure[T])
	return ok
}

func IsLoading[T any](r Result[T]) bool {
	_, ok := r.(Loading[T])
	return ok
}

// From converts a Go (value, error) pair into a Result.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// SafeCall runs fn and converts its outcome into a Result.
// A panic inside fn becomes a Failure; nothing escapes.
func SafeCall[T any](fn func() (T, error)) (r Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			r = Fail[T](err)
		}
	}()
	return From(fn())
}
