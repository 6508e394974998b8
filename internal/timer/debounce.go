package timer

import (
	"sync"
	"time"
)

// Debouncer runs fn once a burst of Trigger calls has been quiet for delay.
// fn never runs concurrently with itself.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	clock *time.Timer
	// gen is bumped by Trigger, Flush and Cancel; a firing clock whose
	// generation is stale does nothing.
	gen   uint64
	armed bool

	running sync.Mutex
}

// NewDebouncer returns an idle debouncer.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	gen := d.bump(true)
	d.clock = time.AfterFunc(d.delay, func() {
		if d.disarm(gen) {
			d.invoke()
		}
	})
}

// Flush runs fn immediately if a trigger is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	was := d.armed
	d.bump(false)
	d.mu.Unlock()

	if was {
		d.invoke()
	}
}

// Cancel forgets a pending trigger.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.bump(false)
	d.mu.Unlock()
}

// Pending reports whether fn is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// bump stops the current clock and starts a new generation. d.mu is held.
func (d *Debouncer) bump(armed bool) uint64 {
	if d.clock != nil {
		d.clock.Stop()
		d.clock = nil
	}
	d.gen++
	d.armed = armed
	return d.gen
}

// disarm claims the pending run for generation gen.
func (d *Debouncer) disarm(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.armed || d.gen != gen {
		return false
	}
	d.armed = false
	return true
}

func (d *Debouncer) invoke() {
	if d.fn == nil {
		return
	}
	d.running.Lock()
	defer d.running.Unlock()
	d.fn()
}
