package event

import "context"

// Priority determines listener execution order.
// Higher values execute first; equal priorities run in registration order.
type Priority int

const (
	// PriorityLow is for journaling and metrics listeners that should see
	// the final outcome of an event.
	PriorityLow Priority = -50

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 0

	// PriorityHigh is for listeners other components depend on.
	PriorityHigh Priority = 50

	// PriorityCritical is for listeners that must observe an event first.
	PriorityCritical Priority = 100
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p >= PriorityCritical:
		return "critical"
	case p >= PriorityHigh:
		return "high"
	case p >= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Listener is the interface for event listeners.
type Listener interface {
	// Handle processes an event. A returned error is logged by the bus and
	// never reaches the emitter or other listeners.
	Handle(ctx context.Context, evt Event) error
}

// ListenerFunc is a function adapter for Listener.
type ListenerFunc func(ctx context.Context, evt Event) error

// Handle implements the Listener interface.
func (f ListenerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Typed adapts a function that expects payloads of type T.
// Events whose Data is not a T are skipped silently.
func Typed[T any](fn func(ctx context.Context, data T) error) Listener {
	return ListenerFunc(func(ctx context.Context, evt Event) error {
		data, ok := evt.Data.(T)
		if !ok {
			return nil
		}
		return fn(ctx, data)
	})
}

// Stats contains event bus statistics.
type Stats struct {
	// Events is the number of distinct event names and patterns with listeners.
	Events int

	// Listeners is the current number of registered listeners.
	Listeners int

	// Emitted is the total number of Emit calls.
	Emitted uint64

	// Delivered is the number of listener invocations that succeeded.
	Delivered uint64

	// ListenerErrors is the number of listeners that returned errors.
	ListenerErrors uint64

	// ListenerPanics is the number of listeners that panicked.
	ListenerPanics uint64

	// AvgDeliveryTimeNs is the average listener execution time in nanoseconds.
	AvgDeliveryTimeNs int64
}
