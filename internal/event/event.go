package event

import "time"

// Event is a single emitted occurrence as seen by a listener.
type Event struct {
	// Name is the emitted event name, e.g. "state:change".
	Name string

	// Data is the payload passed to Emit. It may be nil.
	Data any

	// Time is when Emit was called.
	Time time.Time
}

// Reserved event names emitted by the bus itself.
const (
	// NameCleanup is emitted to current listeners right before Cleanup clears
	// the registry.
	NameCleanup = "bus:cleanup"

	// NameSystemLog is emitted with a LogEntry for every important event.
	NameSystemLog = "system:log"
)
