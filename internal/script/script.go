package script

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

// DefaultCallTimeout bounds a single chunk or callback.
const DefaultCallTimeout = 5 * time.Second

// Option configures a Script.
type Option func(*Script)

// WithLogger sets the logger for log(), print() and callback failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Script) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCallTimeout bounds how long a chunk or callback may run before the
// Lua state is interrupted. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Script) {
		s.callTimeout = d
	}
}

// Script is one sandboxed Lua state bound to a bus, a store and a timer
// registry. The Lua state is only touched from the script's goroutine.
type Script struct {
	name        string
	L           *lua.LState
	bus         *event.Bus
	store       *state.Store
	timers      *timer.Registry
	logger      *zap.Logger
	callTimeout time.Duration

	box       *mailbox
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	subs       map[string]event.Subscription
	timerNames map[string]struct{}

	calls  atomic.Uint64
	failed atomic.Uint64
}

// New creates a script named name and starts its goroutine. Nothing runs
// until DoString or DoFile is called.
func New(name string, bus *event.Bus, store *state.Store, timers *timer.Registry, opts ...Option) *Script {
	s := &Script{
		name:        name,
		bus:         bus,
		store:       store,
		timers:      timers,
		logger:      zap.NewNop(),
		callTimeout: DefaultCallTimeout,
		box:         newMailbox(),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		subs:        make(map[string]event.Subscription),
		timerNames:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("script", name))

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	sandbox(s.L)
	s.register(s.L)

	go s.loop()
	return s
}

// openSafeLibraries opens base, table, string and math. io, os, debug and
// package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes the base functions that load code from disk or strings.
func sandbox(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Name returns the script name.
func (s *Script) Name() string { return s.name }

// DoString runs a chunk on the script goroutine and waits for it.
func (s *Script) DoString(ctx context.Context, src string) error {
	return s.exec(ctx, "run", func() error { return s.L.DoString(src) })
}

// DoFile runs a file on the script goroutine and waits for it.
func (s *Script) DoFile(ctx context.Context, path string) error {
	return s.exec(ctx, "load "+path, func() error { return s.L.DoFile(path) })
}

// Global reads a global variable, converted to a plain Go value.
func (s *Script) Global(ctx context.Context, name string) (any, error) {
	var v any
	err := s.exec(ctx, "global", func() error {
		v = toGo(s.L.GetGlobal(name))
		return nil
	})
	return v, err
}

// Calls returns how many callbacks the script has run.
func (s *Script) Calls() uint64 { return s.calls.Load() }

// Failures returns how many callbacks raised an error.
func (s *Script) Failures() uint64 { return s.failed.Load() }

// Pending returns the number of queued callbacks.
func (s *Script) Pending() int { return s.box.len() }

// Close unsubscribes every listener, clears every timer the script owns,
// stops the goroutine and closes the Lua state. Queued callbacks are
// dropped. Close is idempotent and must not be called from a callback.
func (s *Script) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped

		s.mu.Lock()
		subs := s.subs
		names := s.timerNames
		s.subs = make(map[string]event.Subscription)
		s.timerNames = make(map[string]struct{})
		s.mu.Unlock()

		for _, sub := range subs {
			sub.Unsubscribe()
		}
		for name := range names {
			s.clearTimer(name)
		}
		s.L.Close()
	})
}

func (s *Script) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.box.signal:
			for _, fn := range s.box.drain() {
				select {
				case <-s.done:
					return
				default:
				}
				fn()
			}
		}
	}
}

// post queues fn for the script goroutine. It reports false after Close.
func (s *Script) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.box.push(fn)
	return true
}

func (s *Script) exec(ctx context.Context, op string, fn func() error) error {
	res := make(chan error, 1)
	if !s.post(func() { res <- s.protect(op, fn) }) {
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// protect runs fn with the call timeout installed on the Lua state.
func (s *Script) protect(op string, fn func() error) (err error) {
	if s.callTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Script: s.name, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := fn(); err != nil {
		return &Error{Script: s.name, Op: op, Err: err}
	}
	return nil
}

// call invokes a Lua callback on the script goroutine. Failures are logged.
func (s *Script) call(op string, fn *lua.LFunction, args ...lua.LValue) {
	s.calls.Add(1)
	err := s.protect(op, func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("script callback failed", zap.String("op", op), zap.Error(err))
	}
}

func (s *Script) timerName(name string) string {
	return "script:" + s.name + ":" + name
}

func (s *Script) clearTimer(name string) {
	s.timers.ClearInterval(s.timerName(name))
	s.timers.ClearTimeout(s.timerName(name))
}
