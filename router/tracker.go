package router

import (
	"context"
	"sync"
	"time"
)

// RateTracker counts requests per endpoint over a 60-second sliding window.
// IncrementAndCheck must be atomic across concurrent callers for the same
// endpoint: prune, check and record happen as one step, never as separate
// unguarded reads and writes.
type RateTracker interface {
	// IncrementAndCheck admits the call if the endpoint is under rpmLimit,
	// recording it on admission. Returns false without recording otherwise.
	IncrementAndCheck(ctx context.Context, endpointID string, rpmLimit int) (bool, error)
	// CurrentRPM returns the number of admitted requests in the window.
	CurrentRPM(ctx context.Context, endpointID string) (int, error)
}

// MemoryTracker is the in-process RateTracker: one timestamp slice per
// endpoint behind a single mutex. Suitable for single-process deployments;
// shared deployments should use the Redis tracker in store/redis.
type MemoryTracker struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string][]time.Time
	// now is swappable for tests.
	now func() time.Time
}

var _ RateTracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates a tracker with the standard 60-second window.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		window:  60 * time.Second,
		entries: map[string][]time.Time{},
		now:     time.Now,
	}
}

func (t *MemoryTracker) prune(endpointID string, now time.Time) []time.Time {
	cutoff := now.Add(-t.window)
	kept := t.entries[endpointID][:0]
	for _, ts := range t.entries[endpointID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	t.entries[endpointID] = kept
	return kept
}

// IncrementAndCheck admits and records the call if under the limit.
func (t *MemoryTracker) IncrementAndCheck(_ context.Context, endpointID string, rpmLimit int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	kept := t.prune(endpointID, now)
	if len(kept) >= rpmLimit {
		return false, nil
	}
	t.entries[endpointID] = append(kept, now)
	return true, nil
}

// CurrentRPM returns the admitted request count in the trailing window.
func (t *MemoryTracker) CurrentRPM(_ context.Context, endpointID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.prune(endpointID, t.now())), nil
}
