package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event/dispatch"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/event/topic"
)

// Bus is a named-event publish/subscribe registry with synchronous,
// priority-ordered dispatch. A single Bus is meant to be shared by reference
// between every component of a process. It is safe for concurrent use.
type Bus struct {
	registry  *Registry
	runner    *dispatch.Runner
	logger    *zap.Logger
	important map[string]struct{}

	emitted atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...Option) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry:  NewRegistry(),
		runner:    dispatch.NewRunner(config.listenerTimeout),
		logger:    config.logger,
		important: make(map[string]struct{}, len(config.important)),
	}
	for _, name := range config.important {
		b.important[name] = struct{}{}
	}
	return b
}

// On registers l under name. The event name does not have to exist in
// advance. Registrations are never de-duplicated: registering the same
// listener twice delivers twice.
//
// A nil listener yields a subscription that is already cancelled.
func (b *Bus) On(name string, l Listener, opts ...ListenerOption) Subscription {
	return b.add(topic.Topic(name), false, l, opts)
}

// OnFunc is On for a plain function.
func (b *Bus) OnFunc(name string, fn ListenerFunc, opts ...ListenerOption) Subscription {
	if fn == nil {
		return b.add(topic.Topic(name), false, nil, opts)
	}
	return b.add(topic.Topic(name), false, fn, opts)
}

// OnPattern registers l for every event whose name matches pattern
// ("*" one segment, "**" any number; segments split on "." and ":").
// Pattern and exact listeners share one ordering.
func (b *Bus) OnPattern(pattern string, l Listener, opts ...ListenerOption) Subscription {
	return b.add(topic.Topic(pattern), true, l, opts)
}

func (b *Bus) add(name topic.Topic, pattern bool, l Listener, opts []ListenerOption) Subscription {
	sub := newSubscription(uuid.NewString(), name, l, opts...)
	sub.pattern = pattern
	if l == nil {
		sub.cancel()
		return sub
	}
	b.registry.Add(sub)
	return sub
}

// Off removes the registration identified by sub from name.
// Unknown names and subscriptions registered under another name are ignored.
func (b *Bus) Off(name string, sub Subscription) {
	if sub == nil {
		return
	}
	b.registry.RemoveFrom(name, sub.ID())
}

// Emit synchronously invokes every listener currently registered for name,
// highest priority first, passing data. A listener that returns an error or
// panics is logged and skipped; the remaining listeners still run and
// nothing is reported to the caller.
//
// Listeners see a snapshot taken at the start of Emit: registrations added
// during the emit wait for the next one, and registrations removed during
// the emit are not invoked.
func (b *Bus) Emit(ctx context.Context, name string, data any) {
	b.emitted.Add(1)
	evt := Event{Name: name, Data: data, Time: time.Now()}

	for _, sub := range b.registry.Match(name) {
		b.deliver(ctx, evt, sub)
	}

	if _, ok := b.important[name]; ok {
		b.journal(ctx, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, evt Event, sub *subscription) {
	if !sub.accepts(evt) {
		return
	}
	if sub.once && !b.registry.Remove(sub.id) {
		// Another emit already consumed it.
		return
	}

	rep := b.runner.Run(ctx, func(ctx context.Context) error {
		return sub.listener.Handle(ctx, evt)
	})

	switch rep.Outcome {
	case dispatch.Panicked:
		b.logger.Error("event listener panicked",
			zap.String("event", evt.Name),
			zap.Error(&PanicError{
				Event:          evt.Name,
				SubscriptionID: sub.id,
				Value:          rep.Panic,
				Stack:          string(rep.Stack),
			}),
			zap.ByteString("stack", rep.Stack),
		)
	case dispatch.Skipped:
		b.logger.Debug("event listener skipped",
			zap.String("event", evt.Name),
			zap.String("subscription", sub.id),
			zap.Error(rep.Err),
		)
	case dispatch.Failed:
		b.logger.Error("event listener failed",
			zap.String("event", evt.Name),
			zap.Error(&ListenerError{
				Event:          evt.Name,
				SubscriptionID: sub.id,
				Err:            rep.Err,
			}),
		)
	}
}

// Listeners returns the number of registrations under an exact name or pattern.
func (b *Bus) Listeners(name string) int {
	return b.registry.CountByName(name)
}

// Names returns the sorted event names and patterns that have listeners.
func (b *Bus) Names() []string {
	return b.registry.Names()
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		Events:            len(b.registry.Names()),
		Listeners:         b.registry.Count(),
		Emitted:           b.emitted.Load(),
		Delivered:         b.runner.Count(dispatch.Delivered),
		ListenerErrors:    b.runner.Count(dispatch.Failed),
		ListenerPanics:    b.runner.Count(dispatch.Panicked),
		AvgDeliveryTimeNs: b.runner.Mean().Nanoseconds(),
	}
}

// Cleanup emits NameCleanup to the current listeners and then removes every
// registration. It may be called more than once.
func (b *Bus) Cleanup() {
	b.Emit(context.Background(), NameCleanup, nil)
	b.registry.Clear()
}
