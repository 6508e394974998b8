package state

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound is returned by typed accessors when a path has no value.
	ErrPathNotFound = errors.New("state path not found")

	// ErrNotSerializable is returned when the tree holds values that cannot
	// be encoded.
	ErrNotSerializable = errors.New("state not serializable")

	// ErrConflict is returned by Update when concurrent writes keep
	// invalidating its validation.
	ErrConflict = errors.New("state update conflict")
)

// TypeError is returned when the value at a path has an unexpected type.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// ValidationError reports a rejected value in Update.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
