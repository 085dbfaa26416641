package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesOnlyTargetUser(t *testing.T) {
	h := NewHub()

	alice1, err := h.Register(1, nil)
	require.NoError(t, err)
	alice2, err := h.Register(1, nil)
	require.NoError(t, err)
	bob, err := h.Register(2, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, h.ConnectionCount())
	assert.True(t, h.IsOnline(1))

	h.Broadcast(1, "hello")

	assert.Equal(t, []byte("hello"), <-alice1.Send)
	assert.Equal(t, []byte("hello"), <-alice2.Send)
	assert.Len(t, bob.Send, 0)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	h := NewHub()
	c, err := h.Register(1, nil)
	require.NoError(t, err)

	h.UnregisterClient(c)
	h.UnregisterClient(c)

	assert.False(t, h.IsOnline(1))
	assert.Zero(t, h.ConnectionCount())

	_, open := <-c.Send
	assert.False(t, open)

	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestHub_PerUserLimit(t *testing.T) {
	h := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := h.Register(1, nil)
		require.NoError(t, err)
	}

	_, err := h.Register(1, nil)
	assert.ErrorIs(t, err, ErrConnectionLimit)

	_, err = h.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	c, err := h.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < cap(c.Send)+5; i++ {
		h.Broadcast(1, "x")
	}
	assert.Len(t, c.Send, cap(c.Send))
}

func TestHub_Shutdown(t *testing.T) {
	h := NewHub()
	c, err := h.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, h.Shutdown(context.Background()))

	_, open := <-c.Send
	assert.False(t, open)
	assert.Zero(t, h.ConnectionCount())

	_, err = h.Register(1, nil)
	assert.Error(t, err)

	assert.NotPanics(t, func() { h.UnregisterClient(c) })
}
