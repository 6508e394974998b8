package event

import (
	"sync/atomic"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event/topic"
)

// State is the delivery state of a subscription.
type State uint32

const (
	StateActive State = iota
	StatePaused
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Subscription is the handle returned by On. Off matches on it.
type Subscription interface {
	ID() string
	// Name is the event name or pattern the listener was registered under.
	Name() string
	Priority() Priority
	State() State

	// Pause stops delivery until Resume. Neither affects a cancelled
	// subscription.
	Pause()
	Resume()

	// Unsubscribe removes the registration. Repeated calls do nothing.
	Unsubscribe()
}

// Filter decides whether an event reaches a listener.
type Filter func(evt Event) bool

// ListenerOption configures a registration.
type ListenerOption func(*subscription)

// WithPriority orders the listener; higher runs first.
func WithPriority(p Priority) ListenerOption {
	return func(s *subscription) { s.priority = p }
}

// WithFilter delivers only events for which f returns true.
func WithFilter(f Filter) ListenerOption {
	return func(s *subscription) { s.filter = f }
}

// WithOnce removes the registration before its first delivery.
func WithOnce() ListenerOption {
	return func(s *subscription) { s.once = true }
}

type subscription struct {
	id       string
	name     topic.Topic
	pattern  bool
	listener Listener
	priority Priority
	filter   Filter
	once     bool

	seq      uint64
	state    atomic.Uint32
	registry *Registry
}

func newSubscription(id string, name topic.Topic, l Listener, opts ...ListenerOption) *subscription {
	s := &subscription{id: id, name: name, listener: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *subscription) ID() string         { return s.id }
func (s *subscription) Name() string       { return string(s.name) }
func (s *subscription) Priority() Priority { return s.priority }
func (s *subscription) State() State       { return State(s.state.Load()) }

func (s *subscription) Pause() {
	s.state.CompareAndSwap(uint32(StateActive), uint32(StatePaused))
}

func (s *subscription) Resume() {
	s.state.CompareAndSwap(uint32(StatePaused), uint32(StateActive))
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	if s.registry != nil {
		s.registry.Remove(s.id)
	}
}

func (s *subscription) cancel() {
	s.state.Store(uint32(StateCancelled))
}

func (s *subscription) accepts(evt Event) bool {
	return s.State() == StateActive && (s.filter == nil || s.filter(evt))
}
