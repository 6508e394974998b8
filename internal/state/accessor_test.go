package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessor(t *testing.T) {
	store, _ := newTestStore(t)
	store.Set("user.name", "Ada")
	store.Set("user.age", 36)
	store.Set("user.score", 9.5)
	store.Set("user.active", true)
	store.Set("user.tags", []any{"math", "engines"})
	store.Set("json.count", 7.0)
	store.Set("timing.delay", "250ms")
	store.Set("timing.ms", 40)

	a := NewAccessor(store)

	s, err := a.GetString("user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", s)

	n, err := a.GetInt("user.age")
	require.NoError(t, err)
	assert.Equal(t, 36, n)

	n, err = a.GetInt("json.count")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	f, err := a.GetFloat("user.score")
	require.NoError(t, err)
	assert.Equal(t, 9.5, f)

	b, err := a.GetBool("user.active")
	require.NoError(t, err)
	assert.True(t, b)

	tags, err := a.GetStringSlice("user.tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "engines"}, tags)

	d, err := a.GetDuration("timing.delay")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = a.GetDuration("timing.ms")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Millisecond, d)

	m, err := a.GetMap("user")
	require.NoError(t, err)
	assert.Len(t, m, 5)
}

func TestAccessor_Errors(t *testing.T) {
	store, _ := newTestStore(t)
	store.Set("user.name", "Ada")
	store.Set("ratio", 0.5)
	a := NewAccessor(store)

	_, err := a.GetString("user.missing")
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = a.GetInt("user.name")
	var terr *TypeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "user.name", terr.Path)
	assert.Equal(t, "integer", terr.Expected)
	assert.Equal(t, "string", terr.Actual)

	_, err = a.GetInt("ratio")
	assert.ErrorAs(t, err, &terr)

	_, err = a.GetBool("user")
	assert.ErrorAs(t, err, &terr)

	_, err = a.GetDuration("user.name")
	assert.Error(t, err)
}

func TestAccessor_NilValue(t *testing.T) {
	store, _ := newTestStore(t)
	store.Set("empty", nil)
	a := NewAccessor(store)

	s, err := a.GetString("empty")
	assert.NoError(t, err)
	assert.Empty(t, s)
}

func TestPath(t *testing.T) {
	store, _ := newTestStore(t)
	name := NewPath[string](store, "user.name")
	age := NewPath[int](store, "user.age")

	_, err := name.Get()
	assert.ErrorIs(t, err, ErrPathNotFound)
	assert.Equal(t, "anon", name.GetOr("anon"))

	var seen [][2]string
	sub := name.Watch(func(oldValue, newValue string) {
		seen = append(seen, [2]string{oldValue, newValue})
	})

	name.Set("Ada")
	name.Set("Grace")
	sub.Unsubscribe()
	name.Set("Hopper")

	got, err := name.Get()
	require.NoError(t, err)
	assert.Equal(t, "Hopper", got)
	assert.Equal(t, [][2]string{{"", "Ada"}, {"Ada", "Grace"}}, seen)
	assert.Equal(t, "user.name", name.String())

	store.Set("user.age", "old")
	_, err = age.Get()
	var terr *TypeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "int", terr.Expected)
}
