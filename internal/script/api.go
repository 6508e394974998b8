package script

import (
	"context"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/event/topic"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/logging"
)

func (s *Script) register(L *lua.LState) {
	for name, fn := range map[string]lua.LGFunction{
		"on":     s.luaOn,
		"off":    s.luaOff,
		"emit":   s.luaEmit,
		"get":    s.luaGet,
		"set":    s.luaSet,
		"every":  s.luaEvery,
		"after":  s.luaAfter,
		"cancel": s.luaCancel,
		"log":    s.luaLog,
		"print":  s.luaPrint,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// on(name, fn [, priority]) -> id
func (s *Script) luaOn(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	priority := event.Priority(L.OptInt(3, int(event.PriorityNormal)))

	listener := event.ListenerFunc(func(_ context.Context, evt event.Event) error {
		s.post(func() {
			s.call("on "+evt.Name, fn, lua.LString(evt.Name), toLua(s.L, evt.Data))
		})
		return nil
	})

	var sub event.Subscription
	if topic.Topic(name).IsWildcard() {
		sub = s.bus.OnPattern(name, listener, event.WithPriority(priority))
	} else {
		sub = s.bus.On(name, listener, event.WithPriority(priority))
	}

	s.mu.Lock()
	s.subs[sub.ID()] = sub
	s.mu.Unlock()

	L.Push(lua.LString(sub.ID()))
	return 1
}

// off(id) -> bool
func (s *Script) luaOff(L *lua.LState) int {
	id := L.CheckString(1)

	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	if ok {
		sub.Unsubscribe()
	}
	L.Push(lua.LBool(ok))
	return 1
}

// emit(name [, data])
func (s *Script) luaEmit(L *lua.LState) int {
	name := L.CheckString(1)
	s.bus.Emit(context.Background(), name, toGo(L.Get(2)))
	return 0
}

// get(path) -> value or nil
func (s *Script) luaGet(L *lua.LState) int {
	v, ok := s.store.Get(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, v))
	return 1
}

// set(path, value)
func (s *Script) luaSet(L *lua.LState) int {
	path := L.CheckString(1)
	s.store.Set(path, toGo(L.Get(2)))
	return 0
}

// every(name, ms, fn)
func (s *Script) luaEvery(L *lua.LState) int {
	name, delay, fn := timerArgs(L)
	s.track(name)
	s.timers.SetInterval(s.timerName(name), func() {
		s.post(func() { s.call("every "+name, fn) })
	}, delay)
	return 0
}

// after(name, ms, fn)
func (s *Script) luaAfter(L *lua.LState) int {
	name, delay, fn := timerArgs(L)
	s.track(name)
	s.timers.SetTimeout(s.timerName(name), func() {
		s.post(func() { s.call("after "+name, fn) })
	}, delay)
	return 0
}

// cancel(name)
func (s *Script) luaCancel(L *lua.LState) int {
	name := L.CheckString(1)

	s.mu.Lock()
	delete(s.timerNames, name)
	s.mu.Unlock()

	s.clearTimer(name)
	return 0
}

// log(msg [, level])
func (s *Script) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	level := zapcore.InfoLevel
	if raw := L.OptString(2, ""); raw != "" {
		l, ok := logging.LookupLevel(raw)
		if !ok {
			L.ArgError(2, "unknown level "+raw)
			return 0
		}
		level = l
	}
	if ce := s.logger.Check(level, msg); ce != nil {
		ce.Write()
	}
	return 0
}

// print(...) writes its arguments to the log at debug level.
func (s *Script) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.logger.Debug(strings.Join(parts, "\t"), zap.Bool("print", true))
	return 0
}

func timerArgs(L *lua.LState) (string, time.Duration, *lua.LFunction) {
	name := L.CheckString(1)
	ms := float64(L.CheckNumber(2))
	fn := L.CheckFunction(3)
	return name, time.Duration(ms * float64(time.Millisecond)), fn
}

func (s *Script) track(name string) {
	s.mu.Lock()
	s.timerNames[name] = struct{}{}
	s.mu.Unlock()
}
