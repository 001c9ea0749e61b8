package typing

import (
	"context"
	"time"

	jww "github.com/spf13/jwalterweatherman"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two emitted signals.
const DefaultInterval = 500 * time.Millisecond

// SendFunc delivers one typing signal.
type SendFunc func(ctx context.Context) error

// Emitter turns a stream of keystrokes into at most one signal per interval.
type Emitter struct {
	limiter *rate.Limiter
	send    SendFunc
	now     func() time.Time
}

// NewEmitter builds an Emitter around send.
func NewEmitter(interval time.Duration, send SendFunc) *Emitter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Emitter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		send:    send,
		now:     time.Now,
	}
}

// Signal records a keystroke. It reports whether a signal went out; the
// send itself is fire-and-forget.
func (e *Emitter) Signal(ctx context.Context) bool {
	if !e.limiter.AllowN(e.now(), 1) {
		return false
	}
	go func() {
		if err := e.send(ctx); err != nil {
			jww.DEBUG.Printf("typing signal dropped: %v", err)
		}
	}()
	return true
}
