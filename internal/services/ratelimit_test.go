package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter(t *testing.T) {
	clock := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(10, 10)
	l.now = func() time.Time { return clock }

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("a"), "request %d", i)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	// one token refills every six minutes
	clock = clock.Add(6 * time.Minute)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	l.Reset("a")
	assert.True(t, l.Allow("a"))
}

func TestKeyedLimiterPrune(t *testing.T) {
	clock := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(0, 0)
	l.now = func() time.Time { return clock }
	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 0, l.Prune())

	clock = clock.Add(2 * time.Hour)
	assert.Equal(t, 2, l.Prune())
}

func TestKeyedLimiterPruneEvery(t *testing.T) {
	l := NewKeyedLimiter(0, 0)
	l.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	l.Allow("a")
	// the next tick sees a fully refilled bucket
	l.mu.Lock()
	l.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.PruneEvery(ctx, time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.buckets) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PruneEvery did not stop after cancel")
	}
}
