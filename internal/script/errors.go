package script

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when a script is used after Close.
	ErrClosed = errors.New("script: closed")

	// ErrDuplicate is returned when a host already runs a script with the
	// same name.
	ErrDuplicate = errors.New("script: duplicate name")
)

// Error wraps a Lua failure with the script it came from.
type Error struct {
	Script string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %s: %v", e.Script, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
