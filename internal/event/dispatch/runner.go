package dispatch

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Outcome classifies one listener invocation.
type Outcome uint8

const (
	Delivered Outcome = iota
	Failed
	Panicked
	Skipped

	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Panicked:
		return "panicked"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Report describes one invocation.
type Report struct {
	Outcome Outcome
	// Err is the listener's error, or ctx.Err() when Skipped.
	Err     error
	Panic   any
	Stack   []byte
	Elapsed time.Duration
}

// Runner calls listeners synchronously. It is safe for concurrent use.
type Runner struct {
	timeout time.Duration
	counts  [numOutcomes]atomic.Uint64
	elapsed atomic.Int64
}

// NewRunner returns a runner that gives every call a deadline of timeout.
// Zero means no deadline; listeners that ignore ctx are never interrupted.
func NewRunner(timeout time.Duration) *Runner {
	return &Runner{timeout: timeout}
}

// Run invokes fn unless ctx is already done.
func (r *Runner) Run(ctx context.Context, fn func(context.Context) error) Report {
	if err := ctx.Err(); err != nil {
		r.counts[Skipped].Add(1)
		return Report{Outcome: Skipped, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rep := call(ctx, fn)
	r.counts[rep.Outcome].Add(1)
	r.elapsed.Add(int64(rep.Elapsed))
	return rep
}

func call(ctx context.Context, fn func(context.Context) error) (rep Report) {
	start := time.Now()
	defer func() {
		rep.Elapsed = time.Since(start)
		if v := recover(); v != nil {
			rep = Report{Outcome: Panicked, Panic: v, Stack: debug.Stack(), Elapsed: rep.Elapsed}
		}
	}()

	if err := fn(ctx); err != nil {
		return Report{Outcome: Failed, Err: err}
	}
	return Report{Outcome: Delivered}
}

// Count returns how many invocations ended with o.
func (r *Runner) Count(o Outcome) uint64 {
	if o >= numOutcomes {
		return 0
	}
	return r.counts[o].Load()
}

// Mean returns the average duration of the calls that ran.
func (r *Runner) Mean() time.Duration {
	ran := r.Count(Delivered) + r.Count(Failed) + r.Count(Panicked)
	if ran == 0 {
		return 0
	}
	return time.Duration(r.elapsed.Load() / int64(ran))
}
