package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlimitedCategoryNeverBlocks(t *testing.T) {
	l := NewCategoryLimiter(nil)

	for i := 0; i < 100; i++ {
		release, err := l.Acquire(context.Background(), "anything")
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 0, l.Active("anything"))
}

func TestCapIsEnforced(t *testing.T) {
	l := NewCategoryLimiter(map[string]int{"pursuit": 2})

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "pursuit")
			require.NoError(t, err)
			defer release()

			now := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int32(2))
	assert.Equal(t, 0, l.Active("pursuit"))
}

func TestAcquireHonorsCancellation(t *testing.T) {
	l := NewCategoryLimiter(map[string]int{"pursuit": 1})

	release, err := l.Acquire(context.Background(), "pursuit")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "pursuit")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewCategoryLimiter(map[string]int{"pursuit": 1})

	release, err := l.Acquire(context.Background(), "pursuit")
	require.NoError(t, err)
	release()
	release() // must not free a slot twice

	assert.Equal(t, 0, l.Active("pursuit"))
}

func TestCapsBelowOneAreIgnored(t *testing.T) {
	l := NewCategoryLimiter(map[string]int{"broken": 0})

	release, err := l.Acquire(context.Background(), "broken")
	require.NoError(t, err)
	release()
}
