package state

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

// Store is a tree of nested maps addressed by dot-separated paths.
// Every mutation is announced on the bus. Store is safe for concurrent use;
// no lock is held while events are emitted, so listeners may read and write
// the store.
type Store struct {
	mu         sync.RWMutex
	root       map[string]any
	validators map[string][]Validator
	// version counts mutations of root.
	version uint64

	bus     *event.Bus
	logger  *zap.Logger
	history *history
}

// NewStore creates an empty store that emits on bus. A nil bus gets a
// private one.
func NewStore(bus *event.Bus, opts ...Option) *Store {
	if bus == nil {
		bus = event.NewBus()
	}
	s := &Store{
		root:       make(map[string]any),
		validators: make(map[string][]Validator),
		bus:        bus,
		logger:     zap.NewNop(),
		history:    newHistory(DefaultHistoryLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the bus the store emits on.
func (s *Store) Bus() *event.Bus {
	return s.bus
}

// Get returns the value stored at path. The second result is false when a
// segment is missing or an intermediate is not a map. Reference values are
// returned as stored, not copied.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup(s.root, splitPath(path))
}

// Set stores value at path, creating intermediate maps as needed, and emits
// EventChange followed by PathEvent(path) before returning.
func (s *Store) Set(path string, value any) {
	s.set(context.Background(), path, value)
}

// SetContext is Set with a context passed to listeners.
func (s *Store) SetContext(ctx context.Context, path string, value any) {
	s.set(ctx, path, value)
}

func (s *Store) set(ctx context.Context, path string, value any) {
	s.mu.Lock()
	old := s.assignLocked(path, value)
	s.mu.Unlock()

	s.changed(ctx, Change{Path: path, OldValue: old, NewValue: value})
}

func (s *Store) assignLocked(path string, value any) any {
	parts := splitPath(path)
	parent := parentFor(s.root, parts)
	key := parts[len(parts)-1]
	old := parent[key]
	parent[key] = value
	s.version++
	return old
}

// Delete removes the value at path and reports whether it existed. A removal
// emits the same events as Set with a nil NewValue.
func (s *Store) Delete(path string) bool {
	parts := splitPath(path)

	s.mu.Lock()
	parent, ok := existingParent(s.root, parts)
	if !ok {
		s.mu.Unlock()
		return false
	}
	key := parts[len(parts)-1]
	old, ok := parent[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(parent, key)
	s.version++
	s.mu.Unlock()

	s.changed(context.Background(), Change{Path: path, OldValue: old})
	return true
}

func (s *Store) changed(ctx context.Context, c Change) {
	s.history.record(c)
	s.logger.Debug("state changed", zap.String("path", c.Path))

	s.bus.Emit(ctx, EventChange, c)
	s.bus.Emit(ctx, PathEvent(c.Path), PathChange{OldValue: c.OldValue, NewValue: c.NewValue})
}

// History returns recorded changes, oldest first.
func (s *Store) History() []Entry {
	return s.history.list()
}

// ClearHistory drops all recorded changes.
func (s *Store) ClearHistory() {
	s.history.clear()
}

// Subscribe calls fn after every change to exactly path.
func (s *Store) Subscribe(path string, fn func(Change), opts ...event.ListenerOption) event.Subscription {
	return s.bus.On(PathEvent(path), event.Typed(func(_ context.Context, pc PathChange) error {
		fn(Change{Path: path, OldValue: pc.OldValue, NewValue: pc.NewValue})
		return nil
	}), opts...)
}

// Watch calls fn after every change to any path.
func (s *Store) Watch(fn func(Change), opts ...event.ListenerOption) event.Subscription {
	return s.bus.On(EventChange, event.Typed(func(_ context.Context, c Change) error {
		fn(c)
		return nil
	}), opts...)
}
