package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind distinguishes intervals from timeouts.
type Kind int

const (
	KindInterval Kind = iota
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Handle is a live timer. It is returned by SetInterval and SetTimeout and
// becomes inactive once cleared, replaced or, for a timeout, fired.
type Handle struct {
	name  string
	kind  Kind
	delay time.Duration
	fn    func()

	// run serialises callbacks of every handle sharing this name.
	run *runLock

	stop      chan struct{}
	timer     *time.Timer
	cancelled atomic.Bool
	fired     atomic.Uint64
}

// Name returns the timer name.
func (h *Handle) Name() string { return h.name }

// Kind returns whether the handle is an interval or a timeout.
func (h *Handle) Kind() Kind { return h.kind }

// Delay returns the configured delay or period.
func (h *Handle) Delay() time.Duration { return h.delay }

// Active reports whether the timer can still fire.
func (h *Handle) Active() bool { return !h.cancelled.Load() }

// Fired returns how many runs of the callback have started.
func (h *Handle) Fired() uint64 { return h.fired.Load() }

// cancel stops the timer. It reports true when a timeout was stopped
// before its goroutine started, which then never runs.
// Must be called with the registry lock held.
func (h *Handle) cancel() bool {
	if !h.cancelled.CompareAndSwap(false, true) {
		return false
	}
	switch h.kind {
	case KindInterval:
		close(h.stop)
	case KindTimeout:
		return h.timer.Stop()
	}
	return false
}

// runLock is shared by the handles of one name. refs counts handles whose
// goroutine has not yet finished; the registry forgets the lock at zero.
type runLock struct {
	sync.Mutex
	refs int
}
