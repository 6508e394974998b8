package state

import "time"

// Event names emitted by the store.
const (
	EventChange = "state:change"
	EventBatch  = "state:batch"
	EventLoaded = "state:loaded"
)

// PathEvent returns the per-path event name for path.
func PathEvent(path string) string {
	return "state:" + path
}

// Change is the payload of EventChange.
type Change struct {
	Path     string
	OldValue any
	NewValue any
}

// PathChange is the payload of a PathEvent.
type PathChange struct {
	OldValue any
	NewValue any
}

// Batch is the payload of EventBatch.
type Batch struct {
	Paths []string
}

// Loaded is the payload of EventLoaded.
type Loaded struct {
	Keys []string
	Time time.Time
}
