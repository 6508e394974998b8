package timer

import (
	"context"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

// MinInterval is the shortest period an interval may have. Shorter delays
// are raised to it.
const MinInterval = time.Millisecond

type key struct {
	kind Kind
	name string
}

// Registry owns every named interval and timeout of a process.
// It is safe for concurrent use, including from inside callbacks.
type Registry struct {
	mu     sync.Mutex
	timers map[key]*Handle
	// locks outlive their handles so a replacement waits for the callback
	// it replaced. A lock is dropped once no handle of its name is live or
	// running.
	locks map[key]*runLock

	bus    *event.Bus
	logger *zap.Logger
	wg     sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for callback panics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry announcing changes on bus.
// A nil bus disables the announcements.
func NewRegistry(bus *event.Bus, opts ...Option) *Registry {
	r := &Registry{
		timers: make(map[key]*Handle),
		locks:  make(map[key]*runLock),
		bus:    bus,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetInterval runs fn every delay under name, replacing any interval
// already installed under that name. A nil fn installs nothing.
// Once SetInterval returns, the replaced callback starts no new run; a run
// it started earlier may still be finishing, and fn waits for it.
func (r *Registry) SetInterval(name string, fn func(), delay time.Duration) *Handle {
	if fn == nil {
		return nil
	}
	delay = max(delay, MinInterval)

	h := r.install(KindInterval, name, fn, delay)
	r.emit(EventIntervalSet, Set{Name: name, Delay: delay})
	return h
}

// ClearInterval stops and removes the interval under name. Once it
// returns the callback starts no new run. Unknown names are ignored.
func (r *Registry) ClearInterval(name string) {
	if r.remove(KindInterval, name) {
		r.emit(EventIntervalCleared, Cleared{Name: name})
	}
}

// SetTimeout runs fn once after delay under name, replacing any timeout
// already installed under that name. The entry is removed when it fires,
// before fn runs, so fn may install a new timeout under the same name.
// A nil fn installs nothing.
func (r *Registry) SetTimeout(name string, fn func(), delay time.Duration) *Handle {
	if fn == nil {
		return nil
	}
	delay = max(delay, 0)

	h := r.install(KindTimeout, name, fn, delay)
	r.emit(EventTimeoutSet, Set{Name: name, Delay: delay})
	return h
}

// ClearTimeout cancels and removes the timeout under name.
// Unknown names are ignored.
func (r *Registry) ClearTimeout(name string) {
	if r.remove(KindTimeout, name) {
		r.emit(EventTimeoutCleared, Cleared{Name: name})
	}
}

// Cleanup cancels every timer. It may be called any number of times.
// Callbacks already running are not interrupted; use Wait to block until
// they finish.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	n := len(r.timers)
	for k, h := range r.timers {
		r.cancelLocked(h)
		delete(r.timers, k)
	}
	r.mu.Unlock()

	if n > 0 {
		r.logger.Debug("timers cleaned up", zap.Int("count", n))
	}
}

// Wait blocks until every timer goroutine has exited. Call it after
// Cleanup, never from inside a callback.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Get returns the live handle of the given kind under name.
func (r *Registry) Get(kind Kind, name string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.timers[key{kind, name}]
	return h, ok
}

// Intervals returns the sorted names of live intervals.
func (r *Registry) Intervals() []string {
	return r.names(KindInterval)
}

// Timeouts returns the sorted names of pending timeouts.
func (r *Registry) Timeouts() []string {
	return r.names(KindTimeout)
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.timers)
}

func (r *Registry) names(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for k := range r.timers {
		if k.kind == kind {
			out = append(out, k.name)
		}
	}
	slices.Sort(out)
	return out
}

// install cancels the old handle and starts the new one in a single
// critical section.
func (r *Registry) install(kind Kind, name string, fn func(), delay time.Duration) *Handle {
	k := key{kind, name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[k]; ok {
		r.cancelLocked(old)
	}
	lock, ok := r.locks[k]
	if !ok {
		lock = &runLock{}
		r.locks[k] = lock
	}
	lock.refs++

	h := &Handle{name: name, kind: kind, delay: delay, fn: fn, run: lock}
	r.wg.Add(1)
	switch kind {
	case KindInterval:
		h.stop = make(chan struct{})
		go r.loop(h)
	case KindTimeout:
		h.timer = time.AfterFunc(delay, func() {
			defer r.wg.Done()
			r.fire(h)
		})
	}
	r.timers[k] = h
	return h
}

func (r *Registry) remove(kind Kind, name string) bool {
	k := key{kind, name}

	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.timers[k]
	if !ok {
		return false
	}
	r.cancelLocked(h)
	delete(r.timers, k)
	return true
}

func (r *Registry) cancelLocked(h *Handle) {
	if h.cancel() {
		r.wg.Done()
		r.releaseLocked(h)
	}
}

// release drops h's reference on its run lock once its goroutine is done.
func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(h)
}

func (r *Registry) releaseLocked(h *Handle) {
	h.run.refs--
	k := key{h.kind, h.name}
	if h.run.refs == 0 && r.locks[k] == h.run {
		delete(r.locks, k)
	}
}

func (r *Registry) loop(h *Handle) {
	defer r.wg.Done()
	defer r.release(h)

	ticker := time.NewTicker(h.delay)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.run.Lock()
			if r.begin(h) {
				r.call(h)
			}
			h.run.Unlock()
		}
	}
}

// begin commits one interval run. Deciding under the registry lock orders
// it against install and remove.
func (r *Registry) begin(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !h.Active() {
		return false
	}
	h.fired.Add(1)
	return true
}

// fire runs a timeout that reached its deadline.
func (r *Registry) fire(h *Handle) {
	k := key{h.kind, h.name}
	defer r.release(h)

	r.mu.Lock()
	if !h.cancelled.CompareAndSwap(false, true) {
		r.mu.Unlock()
		return
	}
	if r.timers[k] == h {
		delete(r.timers, k)
	}
	h.fired.Add(1)
	r.mu.Unlock()

	h.run.Lock()
	defer h.run.Unlock()
	r.call(h)
}

func (r *Registry) call(h *Handle) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("timer callback panicked",
				zap.String("timer", h.name),
				zap.Error(&CallbackPanic{Name: h.name, Kind: h.kind, Value: v}),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	h.fn()
}

func (r *Registry) emit(name string, data any) {
	if r.bus == nil {
		return
	}
	r.bus.Emit(context.Background(), name, data)
}
