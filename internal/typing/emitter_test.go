package typing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmitterAllowsOneSignalPerInterval(t *testing.T) {
	var sent atomic.Int32
	e := NewEmitter(500*time.Millisecond, func(context.Context) error {
		sent.Add(1)
		return nil
	})
	clock := time.Unix(1_700_000_000, 0)
	e.now = func() time.Time { return clock }

	assert.True(t, e.Signal(context.Background()))
	for i := 0; i < 5; i++ {
		clock = clock.Add(90 * time.Millisecond)
		assert.False(t, e.Signal(context.Background()))
	}

	clock = clock.Add(60 * time.Millisecond)
	assert.True(t, e.Signal(context.Background()))

	assert.Eventually(t, func() bool { return sent.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestEmitterIgnoresSendErrors(t *testing.T) {
	e := NewEmitter(0, func(context.Context) error { return context.DeadlineExceeded })
	assert.True(t, e.Signal(context.Background()))
}
