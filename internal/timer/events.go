package timer

import "time"

// Event names emitted by the registry.
const (
	EventIntervalSet     = "timer:intervalSet"
	EventIntervalCleared = "timer:intervalCleared"
	EventTimeoutSet      = "timer:timeoutSet"
	EventTimeoutCleared  = "timer:timeoutCleared"
)

// Set is the payload of EventIntervalSet and EventTimeoutSet.
type Set struct {
	Name  string
	Delay time.Duration
}

// Cleared is the payload of EventIntervalCleared and EventTimeoutCleared.
type Cleared struct {
	Name string
}
