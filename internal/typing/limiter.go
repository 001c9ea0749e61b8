package typing

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type pooled struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterPool keeps one limiter per key, for server-side typing throttling.
// Idle limiters are evicted after ttl.
type LimiterPool struct {
	mu       sync.Mutex
	m        map[string]*pooled
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewLimiterPool builds a pool admitting one event per interval per key.
func NewLimiterPool(interval, ttl time.Duration) *LimiterPool {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LimiterPool{
		m:        make(map[string]*pooled),
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow reports whether key may emit now.
func (p *LimiterPool) Allow(key string) bool {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictLocked(now)

	l, ok := p.m[key]
	if !ok {
		l = &pooled{limiter: rate.NewLimiter(rate.Every(p.interval), 1)}
		p.m[key] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (p *LimiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func (p *LimiterPool) evictLocked(now time.Time) {
	for k, l := range p.m {
		if now.Sub(l.lastSeen) > p.ttl {
			delete(p.m, k)
		}
	}
}
