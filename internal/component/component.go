// Package component binds application components to the event bus.
//
// A component declares the events it handles; registering it subscribes
// every handler, and unregistering it removes exactly those subscriptions.
package component

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

// Event names emitted by the registry.
const (
	EventRegister   = "component:register"
	EventUnregister = "component:unregister"
)

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("component already registered")

	// ErrInvalidComponent is returned for nil components or empty names.
	ErrInvalidComponent = errors.New("invalid component")
)

// Component is a named set of event handlers.
type Component interface {
	Name() string
	Events() map[string]event.Listener
}

// Prioritized can be implemented to give a component's handlers a
// non-default priority.
type Prioritized interface {
	Priority() event.Priority
}

// Info is the payload of EventRegister and EventUnregister.
type Info struct {
	Name   string
	Events []string
}

type entry struct {
	component Component
	subs      []event.Subscription
	events    []string
}

// Registry tracks registered components and their subscriptions.
type Registry struct {
	mu         sync.Mutex
	bus        *event.Bus
	components map[string]*entry
}

// NewRegistry creates a registry that binds handlers on bus.
func NewRegistry(bus *event.Bus) *Registry {
	return &Registry{
		bus:        bus,
		components: make(map[string]*entry),
	}
}

// Register emits EventRegister and then subscribes each of c's handlers,
// in event name order.
func (r *Registry) Register(ctx context.Context, c Component) error {
	if c == nil || c.Name() == "" {
		return ErrInvalidComponent
	}
	name := c.Name()

	r.mu.Lock()
	if _, ok := r.components[name]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	e := &entry{component: c}
	r.components[name] = e
	r.mu.Unlock()

	handlers := c.Events()
	events := make([]string, 0, len(handlers))
	for ev := range handlers {
		events = append(events, ev)
	}
	slices.Sort(events)

	r.bus.Emit(ctx, EventRegister, Info{Name: name, Events: events})

	var opts []event.ListenerOption
	if p, ok := c.(Prioritized); ok {
		opts = append(opts, event.WithPriority(p.Priority()))
	}

	subs := make([]event.Subscription, 0, len(events))
	for _, ev := range events {
		if handlers[ev] == nil {
			continue
		}
		subs = append(subs, r.bus.On(ev, handlers[ev], opts...))
	}

	r.mu.Lock()
	e.subs = subs
	e.events = events
	r.mu.Unlock()
	return nil
}

// Unregister removes the handlers of the named component and emits
// EventUnregister. It reports whether the component was registered.
func (r *Registry) Unregister(ctx context.Context, name string) bool {
	r.mu.Lock()
	e, ok := r.components[name]
	if ok {
		delete(r.components, name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	for _, sub := range e.subs {
		r.bus.Off(sub.Name(), sub)
	}
	r.bus.Emit(ctx, EventUnregister, Info{Name: name, Events: e.events})
	return true
}

// Get returns the registered component with the given name.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.components[name]
	if !ok {
		return nil, false
	}
	return e.component, true
}

// Names returns the sorted names of registered components.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.components))
	for n := range r.components {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// UnregisterAll removes every component.
func (r *Registry) UnregisterAll(ctx context.Context) {
	for _, name := range r.Names() {
		r.Unregister(ctx, name)
	}
}

// Func is a Component built from a name and a handler map.
type Func struct {
	ComponentName string
	Handlers      map[string]event.Listener
}

func (f Func) Name() string                      { return f.ComponentName }
func (f Func) Events() map[string]event.Listener { return f.Handlers }
