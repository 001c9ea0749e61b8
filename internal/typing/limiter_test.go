package typing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterPoolIsPerKey(t *testing.T) {
	p := NewLimiterPool(time.Second, time.Minute)
	clock := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return clock }

	assert.True(t, p.Allow("chan-a:alice"))
	assert.False(t, p.Allow("chan-a:alice"))
	assert.True(t, p.Allow("chan-a:bob"))

	clock = clock.Add(time.Second)
	assert.True(t, p.Allow("chan-a:alice"))
}

func TestLimiterPoolEvictsIdleKeys(t *testing.T) {
	p := NewLimiterPool(time.Second, 10*time.Second)
	clock := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return clock }

	p.Allow("a")
	p.Allow("b")
	assert.Equal(t, 2, p.Len())

	clock = clock.Add(11 * time.Second)
	p.Allow("c")
	assert.Equal(t, 1, p.Len())
}
