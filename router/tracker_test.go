package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitAdmitsExactlyL(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	const limit = 5
	for i := 0; i < limit; i++ {
		ok, err := tr.IncrementAndCheck(ctx, "ep", limit)
		require.NoError(t, err)
		assert.True(t, ok, "call %d should be admitted", i+1)
	}

	ok, err := tr.IncrementAndCheck(ctx, "ep", limit)
	require.NoError(t, err)
	assert.False(t, ok, "call past the limit must be rejected")

	rpm, err := tr.CurrentRPM(ctx, "ep")
	require.NoError(t, err)
	assert.Equal(t, limit, rpm, "rejected call must not be recorded")
}

func TestWindowExpiry(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	now := time.Now()
	tr.now = func() time.Time { return now }

	ok, _ := tr.IncrementAndCheck(ctx, "ep", 1)
	assert.True(t, ok)
	ok, _ = tr.IncrementAndCheck(ctx, "ep", 1)
	assert.False(t, ok)

	// advance past the window
	now = now.Add(61 * time.Second)
	ok, _ = tr.IncrementAndCheck(ctx, "ep", 1)
	assert.True(t, ok)
}

func TestEndpointsIndependent(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	ok, _ := tr.IncrementAndCheck(ctx, "a", 1)
	assert.True(t, ok)
	ok, _ = tr.IncrementAndCheck(ctx, "b", 1)
	assert.True(t, ok)
	ok, _ = tr.IncrementAndCheck(ctx, "a", 1)
	assert.False(t, ok)
}

func TestConcurrentAdmission(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	const limit = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tr.IncrementAndCheck(ctx, "ep", limit)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, admitted)
}
