package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SpacesRequestsAcrossTheWindow(t *testing.T) {
	// 600 rpm = one token every 100ms, so three calls need at least ~200ms.
	l := New(600, 10)

	start := time.Now()
	for i := 0; i < 3; i++ {
		err := l.Do(context.Background(), func() error { return nil })
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 190*time.Millisecond, "calls were not spaced by the budget")
	assert.Less(t, elapsed, 2*time.Second)
}

func TestLimiter_CapsInFlightCalls(t *testing.T) {
	l := New(600000, 2) // effectively no budget spacing, cap of 2

	var inFlight, maxSeen int64
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func() error {
				n := atomic.AddInt64(&inFlight, 1)
				for {
					max := atomic.LoadInt64(&maxSeen)
					if n <= max || atomic.CompareAndSwapInt64(&maxSeen, max, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&maxSeen), int64(2))
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	l := New(600000, 1)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_ReleaseFreesTheSlot(t *testing.T) {
	l := New(600000, 1)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	release2, err := l.Acquire(ctx)
	require.NoError(t, err, "slot was not freed by release")
	release2()
}
