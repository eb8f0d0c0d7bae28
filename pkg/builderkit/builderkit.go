// Package builderkit is the runtime support imported by generated builders.
package builderkit

import (
	"errors"
	"fmt"
)

// Into is accepted by conversion setters.
type Into[T any] interface {
	Into() T
}

// TryInto is accepted by fallible setters.
type TryInto[T any] interface {
	TryInto() (T, error)
}

type value[T any] struct{ v T }

func (v value[T]) Into() T              { return v.v }
func (v value[T]) TryInto() (T, error) { return v.v, nil }

// Value adapts a plain value to Into and TryInto.
func Value[T any](v T) interface {
	Into[T]
	TryInto[T]
} {
	return value[T]{v: v}
}

// IntoFunc adapts a function to Into.
type IntoFunc[T any] func() T

func (f IntoFunc[T]) Into() T { return f() }

// TryFunc adapts a fallible function to TryInto.
type TryFunc[T any] func() (T, error)

func (f TryFunc[T]) TryInto() (T, error) { return f() }

// ErrUninitializedField matches every UninitializedFieldError.
var ErrUninitializedField = errors.New("uninitialized field")

// UninitializedFieldError is returned by a build method when a required
// field was never set.
type UninitializedFieldError struct {
	Field string
}

func (e *UninitializedFieldError) Error() string {
	return fmt.Sprintf("field %q must be initialized", e.Field)
}

func (e *UninitializedFieldError) Is(target error) bool {
	return target == ErrUninitializedField
}

// ValidationError wraps the error returned by a user validation hook.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrorReceiver is implemented by caller-chosen build error types.
type ErrorReceiver interface {
	FromBuildError(err error)
}

// ErrorAs converts a build error into the caller's error type E. *E must
// implement error and ErrorReceiver.
func ErrorAs[E any, P interface {
	*E
	ErrorReceiver
	error
}](err error) error {
	if err == nil {
		return nil
	}
	var e E
	p := P(&e)
	p.FromBuildError(err)
	return p
}
