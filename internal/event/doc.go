// Package event provides the event bus every Quantara component talks through.
//
// The bus is a named-event publish/subscribe registry. Producers call Emit
// with an event name and a payload; listeners registered with On under that
// name run synchronously in the emitting goroutine before Emit returns.
//
// # Event Names
//
// Names are free-form strings that do not have to be declared in advance.
// The conventions used across the code base are "<area>:<what>":
//
//	state:change            - any path in the state store changed
//	state:user.name         - the path "user.name" changed
//	timer:intervalSet       - a named interval was (re)installed
//	notification:show       - a notification should be displayed
//
// # Priority Ordering
//
// Listeners run in descending priority. Equal priorities run in the order
// they were registered, so a fixed registration sequence always yields the
// same delivery order:
//
//   - Critical (100): must observe an event first
//   - High (50): listeners other components depend on
//   - Normal (0): default
//   - Low (-50): journaling and metrics
//
// # Failure Isolation
//
// A listener that returns an error or panics is logged with the event name
// and the bus moves on to the next listener. Emit never reports listener
// failures to its caller.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//	defer bus.Cleanup()
//
//	sub := bus.OnFunc("state:user.name", func(ctx context.Context, evt event.Event) error {
//	    fmt.Println("name changed:", evt.Data)
//	    return nil
//	}, event.WithPriority(event.PriorityHigh))
//
//	bus.Emit(ctx, "state:user.name", "Ada")
//	bus.Off("state:user.name", sub)
//
// # Patterns
//
// OnPattern subscribes to every name matching a wildcard pattern, see the
// topic subpackage:
//
//	bus.OnPattern("state:user.**", listener)
//
// # Thread Safety
//
// The Bus is safe for concurrent use. No lock is held while a listener runs,
// so listeners may call On, Off and Emit themselves. A slow listener blocks
// the goroutine that emitted the event.
//
// # Subpackages
//
//   - topic: event-name patterns and trie matching
//   - dispatch: listener execution with panic recovery
package event
