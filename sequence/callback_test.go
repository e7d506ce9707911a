package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

func TestCallbackRegistersLazily(t *testing.T) {
	w := donburi.NewWorld()
	var got []string
	cb := NewCallback(func(_ donburi.World, s string) error {
		got = append(got, s)
		return nil
	})
	assert.False(t, cb.Registered())
	assert.Zero(t, SystemsOf(w).Len())

	require.NoError(t, cb.Call(w, "one"))
	require.NoError(t, cb.Call(w, "two"))
	assert.True(t, cb.Registered())
	assert.Equal(t, 1, SystemsOf(w).Len())
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestCallbackCopiesShareRegistration(t *testing.T) {
	w := donburi.NewWorld()
	calls := 0
	cb := NewCallback(func(donburi.World, int) error {
		calls++
		return nil
	})
	cp := cb
	require.NoError(t, cb.Call(w, 1))
	assert.True(t, cp.Registered())
	require.NoError(t, cp.Call(w, 2))
	assert.Equal(t, 1, SystemsOf(w).Len())

	require.NoError(t, cp.Unregister(w))
	assert.False(t, cb.Registered())
	assert.ErrorIs(t, cb.Call(w, 3), ErrCallbackReleased)
	assert.Equal(t, 2, calls)
	assert.Zero(t, SystemsOf(w).Len())
}

func TestCallbackUnregisterIsIdempotent(t *testing.T) {
	w := donburi.NewWorld()
	cb := NewCallback(func(donburi.World, struct{}) error { return nil })
	require.NoError(t, cb.Unregister(w))
	require.NoError(t, cb.Unregister(w))
	assert.ErrorIs(t, cb.Call(w, struct{}{}), ErrCallbackReleased)

	var zero Callback[int]
	assert.NoError(t, zero.Unregister(w))
	assert.ErrorIs(t, zero.Call(w, 0), ErrCallbackReleased)
	assert.False(t, zero.Registered())
}

func TestCallbackBoundToOneWorld(t *testing.T) {
	w1, w2 := donburi.NewWorld(), donburi.NewWorld()
	cb := NewCallback(func(donburi.World, int) error { return nil })
	require.NoError(t, cb.Call(w1, 0))
	assert.ErrorIs(t, cb.Call(w2, 0), ErrForeignWorld)
	assert.ErrorIs(t, cb.Unregister(w2), ErrForeignWorld)
	assert.NoError(t, cb.Call(w1, 0))
	require.NoError(t, cb.Unregister(w1))
	assert.Zero(t, SystemsOf(w1).Len())
}

func TestSystemsRegistry(t *testing.T) {
	w := donburi.NewWorld()
	s := SystemsOf(w)
	assert.Same(t, s, SystemsOf(w))

	var got any
	id := s.Register(func(_ donburi.World, in any) error {
		got = in
		return nil
	})
	require.NoError(t, s.Run(w, id, 42))
	assert.Equal(t, 42, got)

	require.NoError(t, s.Unregister(id))
	assert.ErrorIs(t, s.Run(w, id, 0), ErrUnknownSystem)
	assert.ErrorIs(t, s.Unregister(id), ErrUnknownSystem)
}
