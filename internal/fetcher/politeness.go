package fetcher

import (
	"context"
	"sync"
	"time"
)

// hostThrottle enforces a minimum delay between requests to the same host
type hostThrottle struct {
	minDelay time.Duration

	mu   sync.Mutex
	next map[string]time.Time
}

func newHostThrottle(minDelay time.Duration) *hostThrottle {
	return &hostThrottle{
		minDelay: minDelay,
		next:     make(map[string]time.Time),
	}
}

// wait blocks until host may be contacted again, reserving the slot after it.
// Concurrent callers for one host are spaced minDelay apart.
func (t *hostThrottle) wait(ctx context.Context, host string) error {
	if t.minDelay <= 0 {
		return nil
	}

	t.mu.Lock()
	now := time.Now()
	slot := t.next[host]
	if slot.Before(now) {
		slot = now
	}
	t.next[host] = slot.Add(t.minDelay)
	t.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
