package event

import (
	"errors"
	"fmt"
)

// ErrListenerPanic is matched by PanicError via errors.Is.
var ErrListenerPanic = errors.New("listener panicked")

// ListenerError wraps an error returned by a listener.
type ListenerError struct {
	// Event is the emitted event name.
	Event string

	// SubscriptionID identifies the failing registration.
	SubscriptionID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %s for %q: %v", e.SubscriptionID, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a listener panic value as an error.
type PanicError struct {
	// Event is the emitted event name.
	Event string

	// SubscriptionID identifies the failing registration.
	SubscriptionID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener %s for %q panicked: %v", e.SubscriptionID, e.Event, e.Value)
}

// Is allows errors.Is to match PanicError with ErrListenerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrListenerPanic
}
