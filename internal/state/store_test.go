package state

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	t.Cleanup(bus.Cleanup)
	return NewStore(bus, opts...), bus
}

func collect[T any](bus *event.Bus, name string) *[]T {
	var got []T
	var mu sync.Mutex
	bus.On(name, event.Typed(func(_ context.Context, v T) error {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		return nil
	}))
	return &got
}

func TestStore_PathRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		path  string
		value any
	}{
		{"a.b.c", 42},
		{"name", "Ada"},
		{"", "empty key"},
		{"list", []any{1, "two", 3.0}},
		{"nested.map", map[string]any{"k": "v"}},
		{"nil.value", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			store.Set(tt.path, tt.value)
			got, ok := store.Get(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestStore_GetReturnsSameReference(t *testing.T) {
	store, _ := newTestStore(t)
	m := map[string]any{"x": 1}

	store.Set("ref", m)
	got, _ := store.Get("ref")
	got.(map[string]any)["y"] = 2

	assert.Equal(t, 2, m["y"])
}

func TestStore_AutoVivification(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("x.y.z", 1)

	y, ok := store.Get("x.y")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"z": 1}, y)

	x, ok := store.Get("x")
	require.True(t, ok)
	assert.Contains(t, x, "y")
}

func TestStore_OverwritesNonMapIntermediate(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("a", 5)
	store.Set("a.b", 6)

	a, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"b": 6}, a)
}

func TestStore_MissingPathRead(t *testing.T) {
	store, _ := newTestStore(t)

	var got any
	var ok bool
	assert.NotPanics(t, func() {
		got, ok = store.Get("does.not.exist")
	})
	assert.False(t, ok)
	assert.Nil(t, got)

	store.Set("leaf", "text")
	_, ok = store.Get("leaf.child")
	assert.False(t, ok)

	store.Set("hole", nil)
	_, ok = store.Get("hole.child")
	assert.False(t, ok)
}

func TestStore_ChangeNotificationPayload(t *testing.T) {
	store, bus := newTestStore(t)

	changes := collect[Change](bus, EventChange)
	pathChanges := collect[PathChange](bus, PathEvent("a.b"))

	store.Set("a.b", 5)

	require.Len(t, *changes, 1)
	assert.Equal(t, Change{Path: "a.b", OldValue: nil, NewValue: 5}, (*changes)[0])
	require.Len(t, *pathChanges, 1)
	assert.Equal(t, PathChange{OldValue: nil, NewValue: 5}, (*pathChanges)[0])
}

func TestStore_GeneralEventBeforePathEvent(t *testing.T) {
	store, bus := newTestStore(t)

	var order []string
	bus.OnFunc(PathEvent("k"), func(context.Context, event.Event) error {
		order = append(order, "path")
		return nil
	}, event.WithPriority(event.PriorityCritical))
	bus.OnFunc(EventChange, func(context.Context, event.Event) error {
		order = append(order, "change")
		return nil
	})

	store.Set("k", 1)

	assert.Equal(t, []string{"change", "path"}, order)
}

func TestStore_UserNameScenario(t *testing.T) {
	store, bus := newTestStore(t)

	var calls []PathChange
	bus.On("state:user.name", event.Typed(func(_ context.Context, pc PathChange) error {
		calls = append(calls, pc)
		return nil
	}), event.WithPriority(0))

	store.Set("user.name", "Ada")
	require.Len(t, calls, 1)
	assert.Equal(t, PathChange{OldValue: nil, NewValue: "Ada"}, calls[0])

	store.Set("user.name", "Grace")
	require.Len(t, calls, 2)
	assert.Equal(t, PathChange{OldValue: "Ada", NewValue: "Grace"}, calls[1])
}

func TestStore_ListenerCanWriteStore(t *testing.T) {
	store, _ := newTestStore(t)

	store.Subscribe("celsius", func(c Change) {
		if v, ok := c.NewValue.(float64); ok {
			store.Set("fahrenheit", v*9/5+32)
		}
	})

	store.Set("celsius", 100.0)

	got, ok := store.Get("fahrenheit")
	require.True(t, ok)
	assert.Equal(t, 212.0, got)
}

func TestStore_Delete(t *testing.T) {
	store, bus := newTestStore(t)
	changes := collect[Change](bus, EventChange)

	store.Set("user.name", "Ada")
	assert.True(t, store.Delete("user.name"))
	assert.False(t, store.Delete("user.name"))
	assert.False(t, store.Delete("no.such.path"))

	_, ok := store.Get("user.name")
	assert.False(t, ok)
	_, ok = store.Get("user")
	assert.True(t, ok)

	require.Len(t, *changes, 2)
	assert.Equal(t, Change{Path: "user.name", OldValue: "Ada"}, (*changes)[1])
}

func TestStore_SubscribeAndWatch(t *testing.T) {
	store, _ := newTestStore(t)

	var exact, all []Change
	sub := store.Subscribe("a", func(c Change) { exact = append(exact, c) })
	store.Watch(func(c Change) { all = append(all, c) })

	store.Set("a", 1)
	store.Set("b", 2)
	sub.Unsubscribe()
	store.Set("a", 3)

	assert.Equal(t, []Change{{Path: "a", NewValue: 1}}, exact)
	assert.Len(t, all, 3)
}

func TestStore_History(t *testing.T) {
	store, _ := newTestStore(t, WithHistoryLimit(3))

	for i := 0; i < 5; i++ {
		store.Set("n", i)
	}

	h := store.History()
	require.Len(t, h, 3)
	assert.Equal(t, 2, h[0].NewValue)
	assert.Equal(t, 4, h[2].NewValue)
	assert.Equal(t, 3, h[2].OldValue)

	store.ClearHistory()
	assert.Empty(t, store.History())
}

func TestStore_HistoryDisabled(t *testing.T) {
	store, _ := newTestStore(t, WithHistoryLimit(0))
	store.Set("n", 1)
	assert.Empty(t, store.History())
}

func TestStore_NilBus(t *testing.T) {
	store := NewStore(nil)
	store.Set("a", 1)

	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)
	assert.NotNil(t, store.Bus())
}

func TestStore_Concurrent(t *testing.T) {
	store, _ := newTestStore(t)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				store.Set("counters.shared", j)
				store.Get("counters.shared")
				store.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("counters.shared")
	assert.True(t, ok)
}
