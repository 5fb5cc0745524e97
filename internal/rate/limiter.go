package rate

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by [Limiter.Check] when the key's bucket is empty.
var ErrRateLimited = errors.New("rate limited")

// Config holds token bucket tuning.
type Config struct {
	// Every is the refill interval for one token. Zero disables limiting.
	Every time.Duration
	// Burst is the bucket size. Values below 1 are treated as 1.
	Burst int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	enabled bool
}

// New returns a keyed limiter. A zero Config yields a limiter that allows
// everything.
func New(cfg Config) *Limiter {
	l := &Limiter{entries: make(map[string]*entry)}
	if cfg.Every <= 0 {
		return l
	}
	l.enabled = true
	l.limit = rate.Every(cfg.Every)
	l.burst = cfg.Burst
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

// Check consumes one token for key at now.
func (l *Limiter) Check(key string, now time.Time) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	if !e.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}
	return nil
}

// Forget drops the bucket for key.
func (l *Limiter) Forget(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Prune drops buckets not used within idle of now and returns how many were
// removed.
func (l *Limiter) Prune(now time.Time, idle time.Duration) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > idle {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
