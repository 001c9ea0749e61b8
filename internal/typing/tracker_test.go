package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expiries struct {
	mu    sync.Mutex
	calls [][]string
}

func (e *expiries) record(names []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, names)
}

func (e *expiries) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func TestObserveDeduplicates(t *testing.T) {
	tr := NewTracker("me", time.Minute, nil)
	defer tr.Stop()

	assert.True(t, tr.Observe("alice"))
	assert.False(t, tr.Observe("alice"))
	assert.True(t, tr.Observe("bob"))
	assert.Equal(t, []string{"alice", "bob"}, tr.Names())
}

func TestObserveExcludesSelf(t *testing.T) {
	tr := NewTracker("me", time.Minute, nil)
	defer tr.Stop()

	assert.False(t, tr.Observe("me"))
	assert.False(t, tr.Observe(""))
	assert.Empty(t, tr.Names())
}

func TestNameExpiresAfterTimeout(t *testing.T) {
	rec := &expiries{}
	tr := NewTracker("me", 40*time.Millisecond, rec.record)
	defer tr.Stop()

	require.True(t, tr.Observe("alice"))
	assert.Eventually(t, func() bool { return len(tr.Names()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.calls[0])
}

func TestNameNotRemovedBeforeTimeout(t *testing.T) {
	tr := NewTracker("me", 300*time.Millisecond, nil)
	defer tr.Stop()

	tr.Observe("alice")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"alice"}, tr.Names())
}

func TestRenewalResetsTimer(t *testing.T) {
	rec := &expiries{}
	tr := NewTracker("me", 200*time.Millisecond, rec.record)
	defer tr.Stop()

	tr.Observe("alice")
	time.Sleep(120 * time.Millisecond)
	tr.Observe("alice")
	time.Sleep(120 * time.Millisecond)

	// first timer would have fired by now
	assert.Equal(t, []string{"alice"}, tr.Names())
	assert.Equal(t, 0, rec.count())

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, tr.Names())
}

func TestStopReleasesTimers(t *testing.T) {
	rec := &expiries{}
	tr := NewTracker("me", 20*time.Millisecond, rec.record)

	tr.Observe("alice")
	tr.Stop()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, rec.count())
	assert.False(t, tr.Observe("bob"))
	assert.Empty(t, tr.Names())
}
