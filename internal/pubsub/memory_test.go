package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeliversToTopicSubscribers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var a, b, other [][]byte
	_, err := m.Subscribe(ctx, "chat:1", func(p []byte) { a = append(a, p) })
	require.NoError(t, err)
	_, err = m.Subscribe(ctx, "chat:1", func(p []byte) { b = append(b, p) })
	require.NoError(t, err)
	_, err = m.Subscribe(ctx, "chat:2", func(p []byte) { other = append(other, p) })
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "chat:1", []byte("hello")))

	assert.Equal(t, [][]byte{[]byte("hello")}, a)
	assert.Equal(t, [][]byte{[]byte("hello")}, b)
	assert.Empty(t, other)
}

func TestMemoryUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	count := 0
	sub, err := m.Subscribe(ctx, "chat:1", func([]byte) { count++ })
	require.NoError(t, err)
	require.NoError(t, m.Publish(ctx, "chat:1", []byte("1")))

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, m.Publish(ctx, "chat:1", []byte("2")))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, m.Subscribers("chat:1"))
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Publish(context.Background(), "chat:1", nil), ErrClosed)
	_, err := m.Subscribe(context.Background(), "chat:1", func([]byte) {})
	assert.ErrorIs(t, err, ErrClosed)
}
