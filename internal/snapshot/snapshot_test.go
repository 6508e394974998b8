package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFile(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	return f
}

func TestFile_RoundTrip(t *testing.T) {
	f := newFile(t)
	tree := map[string]any{
		"user": map[string]any{"name": "Ada", "age": 36},
		"tags": []any{"a", "b"},
	}

	require.NoError(t, f.Write(tree))
	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, tree, got)

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestFile_ReadMissing(t *testing.T) {
	f := newFile(t)
	_, err := f.Read()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecode(t *testing.T) {
	tree, err := Decode([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, tree)

	tree, err = Decode([]byte("~\n"))
	require.NoError(t, err)
	assert.Empty(t, tree)

	_, err = Decode([]byte("- a\n- b\n"))
	assert.ErrorIs(t, err, ErrNotMapping)

	_, err = Decode([]byte("a: [unclosed\n"))
	assert.Error(t, err)
}

func TestEncode_Nil(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestSaver_DebouncedAutosave(t *testing.T) {
	bus := event.NewBus()
	store := state.NewStore(bus)
	f := newFile(t)

	var saved atomic.Int32
	bus.OnFunc(EventSaved, func(context.Context, event.Event) error {
		saved.Add(1)
		return nil
	})

	s := NewSaver(f, store, 20*time.Millisecond)
	defer s.Close()

	for i := 0; i < 5; i++ {
		store.Set("counter", i)
	}
	assert.True(t, s.Pending())

	require.Eventually(t, func() bool { return saved.Load() == 1 }, time.Second, time.Millisecond)

	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, 4, got["counter"])
}

func TestSaver_Flush(t *testing.T) {
	store := state.NewStore(nil)
	f := newFile(t)
	s := NewSaver(f, store, time.Hour)

	require.NoError(t, s.Flush())
	_, err := f.Read()
	assert.ErrorIs(t, err, os.ErrNotExist)

	store.Set("user.name", "Grace")
	require.NoError(t, s.Close())
	assert.False(t, s.Pending())

	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user": map[string]any{"name": "Grace"}}, got)

	store.Set("user.name", "ignored after close")
	assert.False(t, s.Pending())
}

func TestWatcher_ReloadsExternalWrites(t *testing.T) {
	bus := event.NewBus()
	store := state.NewStore(bus)
	f := newFile(t)

	w, err := NewWatcher(f, store)
	require.NoError(t, err)

	var reloaded atomic.Int32
	bus.OnFunc(EventReloaded, func(context.Context, event.Event) error {
		reloaded.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.NoError(t, os.WriteFile(f.Path(), []byte("user:\n  name: Ada\n"), 0o644))

	require.Eventually(t, func() bool {
		v, ok := store.Get("user.name")
		return ok && v == "Ada"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Positive(t, reloaded.Load())
}

func TestWatcher_IgnoresOwnWrites(t *testing.T) {
	bus := event.NewBus()
	store := state.NewStore(bus)
	f := newFile(t)

	var reloaded atomic.Int32
	bus.OnFunc(EventReloaded, func(context.Context, event.Event) error {
		reloaded.Add(1)
		return nil
	})

	w, err := NewWatcher(f, store)
	require.NoError(t, err)

	store.Set("theme", "dark")
	require.NoError(t, f.Write(store.Snapshot()))
	w.Reload()

	assert.Zero(t, reloaded.Load())
	require.NoError(t, w.Close())
}

func TestWatcher_ReloadBadFile(t *testing.T) {
	store := state.NewStore(nil)
	f := newFile(t)
	w, err := NewWatcher(f, store)
	require.NoError(t, err)
	defer w.Close()

	w.Reload()

	require.NoError(t, os.WriteFile(f.Path(), []byte("- not\n- a map\n"), 0o644))
	w.Reload()

	assert.Empty(t, store.Snapshot())
}

func TestWatcher_CloseEndsRun(t *testing.T) {
	w, err := NewWatcher(newFile(t), state.NewStore(nil))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.NoError(t, w.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.NoError(t, w.Close())
}
