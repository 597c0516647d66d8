package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default submission budget per client.
const (
	DefaultSubmissionsPerHour = 10
	DefaultSubmissionBurst    = 10
)

// KeyedLimiter is a token bucket per client key.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewKeyedLimiter allows perHour events per key with the given burst.
// Non-positive values fall back to the defaults.
func NewKeyedLimiter(perHour, burst int) *KeyedLimiter {
	if perHour <= 0 {
		perHour = DefaultSubmissionsPerHour
	}
	if burst <= 0 {
		burst = DefaultSubmissionBurst
	}
	return &KeyedLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Every(time.Hour / time.Duration(perHour)),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow consumes one token from key's bucket.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b.AllowN(l.now(), 1)
}

// Reset forgets key's bucket.
func (l *KeyedLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// Prune drops buckets that have refilled completely, so idle clients do not
// accumulate.
func (l *KeyedLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, b := range l.buckets {
		if b.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// PruneEvery calls Prune on every tick until ctx is done.
func (l *KeyedLimiter) PruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}
