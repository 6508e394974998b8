package state

import (
	"fmt"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

// Path is a typed handle on one location in a Store.
type Path[T any] struct {
	store *Store
	path  string
}

// NewPath binds path in store to type T.
func NewPath[T any](store *Store, path string) Path[T] {
	return Path[T]{store: store, path: path}
}

// String returns the dot path.
func (p Path[T]) String() string {
	return p.path
}

// Get returns the value at the path. It fails with ErrPathNotFound when
// absent and *TypeError when the stored value is not a T.
func (p Path[T]) Get() (T, error) {
	var zero T
	val, ok := p.store.Get(p.path)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrPathNotFound, p.path)
	}
	v, ok := val.(T)
	if !ok {
		return zero, &TypeError{
			Path:     p.path,
			Expected: fmt.Sprintf("%T", zero),
			Actual:   fmt.Sprintf("%T", val),
		}
	}
	return v, nil
}

// GetOr returns the value at the path, or def when it is absent or has
// another type.
func (p Path[T]) GetOr(def T) T {
	v, err := p.Get()
	if err != nil {
		return def
	}
	return v
}

// Set stores v at the path.
func (p Path[T]) Set(v T) {
	p.store.Set(p.path, v)
}

// Watch calls fn after each change to the path. Values that are not a T
// are passed as the zero value.
func (p Path[T]) Watch(fn func(oldValue, newValue T)) event.Subscription {
	return p.store.Subscribe(p.path, func(c Change) {
		oldV, _ := c.OldValue.(T)
		newV, _ := c.NewValue.(T)
		fn(oldV, newV)
	})
}
