// Package timer keeps named intervals and timeouts.
//
// Each name maps to at most one live timer per kind. Installing a timer
// under a name that is already in use cancels the old one first, under the
// same lock, so there is never a moment where both are live:
//
//	timers := timer.NewRegistry(bus)
//	timers.SetInterval("poll", pollOnce, time.Second)
//	timers.SetInterval("poll", pollFaster, 100*time.Millisecond) // replaces
//	timers.Cleanup()
//
// Callbacks run on timer goroutines. Callbacks registered under one name
// never overlap, even across a replacement, and a callback that panics is
// logged and does not stop its interval.
//
// Every install and removal is announced on the event bus as
// timer:intervalSet, timer:intervalCleared, timer:timeoutSet or
// timer:timeoutCleared.
package timer
