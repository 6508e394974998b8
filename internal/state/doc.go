// Package state implements the path-addressed application state store.
//
// The store holds a single tree of nested map[string]any values. Values are
// addressed by dot-separated paths such as "user.profile.name":
//
//	store := state.NewStore(bus)
//	store.Set("user.name", "Ada")
//	name, ok := store.Get("user.name")
//
// Set creates any missing intermediate maps. An intermediate that exists but
// is not a map[string]any is replaced by a fresh map, discarding the old
// value. Paths are never rejected: "" and "name" are ordinary top-level keys.
//
// # Change Events
//
// Every Set emits two events on the bus, in this order, before Set returns:
//
//	state:change     Change{Path, OldValue, NewValue}
//	state:<path>     PathChange{OldValue, NewValue}
//
// Subscribe and Watch are shorthands for listening to these.
//
// # Batches and Validation
//
// Update applies several paths at once. Validators registered with
// AddValidator run for every path in the batch before anything is written;
// if any fails, no value is changed and the aggregated error is returned.
// Set itself never validates.
//
// # Typed Access
//
// Values are stored untyped. Accessor and Path[T] provide checked reads:
//
//	age := state.NewPath[int](store, "user.age")
//	n, err := age.Get()
package state
