package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	bus    *event.Bus
	store  *state.Store
	timers *timer.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := event.NewBus()
	f := &fixture{
		bus:    bus,
		store:  state.NewStore(bus),
		timers: timer.NewRegistry(bus),
	}
	t.Cleanup(func() {
		f.timers.Cleanup()
		f.timers.Wait()
		bus.Cleanup()
	})
	return f
}

func (f *fixture) script(t *testing.T, src string, opts ...Option) *Script {
	t.Helper()
	s := New("test", f.bus, f.store, f.timers, opts...)
	t.Cleanup(s.Close)
	require.NoError(t, s.DoString(context.Background(), src))
	return s
}

func (f *fixture) eventually(t *testing.T, path string, want any) {
	t.Helper()
	require.Eventually(t, func() bool {
		v, ok := f.store.Get(path)
		return ok && assert.ObjectsAreEqual(want, v)
	}, time.Second, 5*time.Millisecond)
}

func TestScript_Sandbox(t *testing.T) {
	f := newFixture(t)
	s := f.script(t, `
		restricted = {}
		for _, name in ipairs({"dofile", "loadfile", "load", "loadstring", "io", "os", "debug", "require"}) do
			if _G[name] ~= nil then table.insert(restricted, name) end
		end
		libs = type(string.format) == "function" and type(math.floor) == "function" and type(table.insert) == "function"
	`)

	restricted, err := s.Global(context.Background(), "restricted")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, restricted)

	libs, err := s.Global(context.Background(), "libs")
	require.NoError(t, err)
	assert.Equal(t, true, libs)
}

func TestScript_GetSet(t *testing.T) {
	f := newFixture(t)
	f.store.Set("user.name", "Ada")

	f.script(t, `
		set("greeting", "hello " .. get("user.name"))
		set("missing", get("no.such.path") == nil)
		set("profile", {age = 36, tags = {"math", "engines"}})
	`)

	v, ok := f.store.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello Ada", v)

	v, _ = f.store.Get("missing")
	assert.Equal(t, true, v)

	v, _ = f.store.Get("profile.age")
	assert.Equal(t, 36, v)
	v, _ = f.store.Get("profile.tags")
	assert.Equal(t, []any{"math", "engines"}, v)
}

func TestScript_OnReceivesEvents(t *testing.T) {
	f := newFixture(t)
	f.script(t, `
		on("user:login", function(name, data)
			set("last.event", name)
			set("last.user", data.user)
		end)
	`)

	f.bus.Emit(context.Background(), "user:login", map[string]any{"user": "grace"})

	f.eventually(t, "last.user", "grace")
	v, _ := f.store.Get("last.event")
	assert.Equal(t, "user:login", v)
}

func TestScript_OnStateChange(t *testing.T) {
	f := newFixture(t)
	f.script(t, `
		on("state:user.name", function(_, change)
			set("seen.old", change.OldValue)
			set("seen.new", change.NewValue)
		end)
	`)

	f.store.Set("user.name", "Ada")
	f.store.Set("user.name", "Grace")

	f.eventually(t, "seen.new", "Grace")
	v, _ := f.store.Get("seen.old")
	assert.Equal(t, "Ada", v)
}

func TestScript_OnPattern(t *testing.T) {
	f := newFixture(t)
	f.script(t, `
		count = 0
		on("job:*", function(name) count = count + 1; set("jobs", count) end)
	`)

	f.bus.Emit(context.Background(), "job:start", nil)
	f.bus.Emit(context.Background(), "job:done", nil)
	f.bus.Emit(context.Background(), "other", nil)

	f.eventually(t, "jobs", 2)
}

func TestScript_Off(t *testing.T) {
	f := newFixture(t)
	s := f.script(t, `
		id = on("ping", function() end)
		removed = off(id)
		again = off(id)
	`)

	assert.Equal(t, 0, f.bus.Listeners("ping"))
	removed, _ := s.Global(context.Background(), "removed")
	again, _ := s.Global(context.Background(), "again")
	assert.Equal(t, true, removed)
	assert.Equal(t, false, again)
}

func TestScript_Emit(t *testing.T) {
	f := newFixture(t)

	var (
		mu  sync.Mutex
		got []event.Event
	)
	f.bus.OnFunc("score", func(_ context.Context, evt event.Event) error {
		mu.Lock()
		got = append(got, evt)
		mu.Unlock()
		return nil
	})

	f.script(t, `emit("score", {points = 10, ratio = 0.5}); emit("score")`)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"points": 10, "ratio": 0.5}, got[0].Data)
	assert.Nil(t, got[1].Data)
}

func TestScript_EmitToSelf(t *testing.T) {
	f := newFixture(t)
	f.script(t, `
		on("ping", function(_, n)
			if n < 3 then emit("ping", n + 1) end
			set("ping", n)
		end)
		emit("ping", 1)
	`)

	f.eventually(t, "ping", 3)
}

func TestScript_After(t *testing.T) {
	f := newFixture(t)
	f.script(t, `
		fired = 0
		after("once", 10, function() fired = fired + 1; set("fired", fired) end)
	`)

	f.eventually(t, "fired", 1)
	time.Sleep(30 * time.Millisecond)
	v, _ := f.store.Get("fired")
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, f.timers.Len())
}

func TestScript_EveryAndCancel(t *testing.T) {
	f := newFixture(t)
	s := f.script(t, `
		ticks = 0
		every("tick", 5, function()
			if ticks >= 3 then return end
			ticks = ticks + 1
			set("ticks", ticks)
			if ticks == 3 then cancel("tick") end
		end)
	`)

	_, ok := f.timers.Get(timer.KindInterval, "script:test:tick")
	assert.True(t, ok)

	f.eventually(t, "ticks", 3)
	require.Eventually(t, func() bool { return f.timers.Len() == 0 }, time.Second, 5*time.Millisecond)

	ticks, err := s.Global(context.Background(), "ticks")
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
}

func TestScript_CallbackErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t)
	s := f.script(t, `
		on("boom", function() error("kaput") end)
		on("boom", function() set("survived", true) end)
	`, WithLogger(zap.New(core)))

	f.bus.Emit(context.Background(), "boom", nil)

	f.eventually(t, "survived", true)
	assert.Equal(t, uint64(1), s.Failures())
	assert.Equal(t, uint64(2), s.Calls())

	entries := logs.FilterMessage("script callback failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "test", entries[0].ContextMap()["script"])
}

func TestScript_Log(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t)
	f.script(t, `log("hello"); log("careful", "warn"); print("a", 1)`, WithLogger(zap.New(core)))

	all := logs.All()
	require.Len(t, all, 3)
	assert.Equal(t, "hello", all[0].Message)
	assert.Equal(t, zapcore.InfoLevel, all[0].Level)
	assert.Equal(t, zapcore.WarnLevel, all[1].Level)
	assert.Equal(t, "a\t1", all[2].Message)
}

type exitHook struct{ hit atomic.Bool }

func (h *exitHook) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) { h.hit.Store(true) }

func TestScript_LogRejectsTerminatingLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hook := &exitHook{}
	logger := zap.New(core, zap.WithFatalHook(hook))

	f := newFixture(t)
	s := New("noisy", f.bus, f.store, f.timers, WithLogger(logger))
	defer s.Close()

	for _, level := range []string{"fatal", "panic", "dpanic", "loud"} {
		err := s.DoString(context.Background(), `log("bye", "`+level+`")`)
		require.Error(t, err, level)
		assert.Contains(t, err.Error(), "unknown level", level)
	}
	assert.False(t, hook.hit.Load())
	assert.Zero(t, logs.Len())

	require.NoError(t, s.DoString(context.Background(), `log("still here", "warning")`))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestScript_SyntaxError(t *testing.T) {
	f := newFixture(t)
	s := New("broken", f.bus, f.store, f.timers)
	defer s.Close()

	err := s.DoString(context.Background(), `this is not lua`)
	var scriptErr *Error
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, "broken", scriptErr.Script)
}

func TestScript_CallTimeout(t *testing.T) {
	f := newFixture(t)
	s := New("spin", f.bus, f.store, f.timers, WithCallTimeout(50*time.Millisecond))
	defer s.Close()

	err := s.DoString(context.Background(), `while true do end`)
	require.Error(t, err)

	// The state stays usable after an interrupted call.
	require.NoError(t, s.DoString(context.Background(), `ok = true`))
}

func TestScript_CloseReleasesEverything(t *testing.T) {
	f := newFixture(t)
	s := New("test", f.bus, f.store, f.timers)
	require.NoError(t, s.DoString(context.Background(), `
		on("ping", function() end)
		on("state:**", function() end)
		every("tick", 1000, function() end)
		after("later", 1000, function() end)
	`))
	require.Equal(t, 2, f.timers.Len())

	s.Close()
	s.Close()

	assert.Equal(t, 0, f.bus.Listeners("ping"))
	assert.Equal(t, 0, f.timers.Len())
	assert.ErrorIs(t, s.DoString(context.Background(), `x = 1`), ErrClosed)
}

func TestScript_TimerNamesArePrivate(t *testing.T) {
	f := newFixture(t)
	f.timers.SetInterval("tick", func() {}, time.Hour)

	a := f.script(t, `every("tick", 1000, function() end)`)
	b := New("other", f.bus, f.store, f.timers)
	defer b.Close()
	require.NoError(t, b.DoString(context.Background(), `every("tick", 1000, function() end)`))

	assert.Equal(t, []string{"script:other:tick", "script:test:tick", "tick"}, f.timers.Intervals())

	a.Close()
	assert.Equal(t, []string{"script:other:tick", "tick"}, f.timers.Intervals())
}

func TestScript_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	s := New("test", f.bus, f.store, f.timers)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The chunk may still win the race against the cancelled context.
	if err := s.DoString(ctx, `x = 1`); err != nil {
		assert.True(t, errors.Is(err, context.Canceled))
	}
}

func TestHost(t *testing.T) {
	f := newFixture(t)
	h := NewHost(f.bus, f.store, f.timers, nil)
	defer h.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "greeter.lua")
	require.NoError(t, os.WriteFile(path, []byte(`set("greeter.loaded", true)`), 0o600))

	s, err := h.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "greeter", s.Name())
	v, _ := f.store.Get("greeter.loaded")
	assert.Equal(t, true, v)

	_, err = h.LoadString(context.Background(), "greeter", `x = 1`)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = h.LoadString(context.Background(), "bad", `error("nope")`)
	require.Error(t, err)
	_, ok := h.Get("bad")
	assert.False(t, ok)

	_, err = h.LoadString(context.Background(), "clock", `every("t", 1000, function() end)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"clock", "greeter"}, h.Names())

	assert.True(t, h.Unload("clock"))
	assert.False(t, h.Unload("clock"))
	assert.Equal(t, 0, f.timers.Len())
}
