package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the single chokepoint in front of the payments provider. Every
// outbound call acquires a concurrency slot and then a budget token; callers
// beyond the budget block in FIFO order instead of failing.
type Limiter struct {
	bucket *rate.Limiter
	sem    chan struct{}
}

// New builds a limiter allowing rpm requests per rolling minute with at most
// maxConcurrent calls in flight. Tokens are spaced evenly across the minute
// so no 60-second window ever sees more than the budget.
func New(rpm, maxConcurrent int) *Limiter {
	if rpm <= 0 {
		rpm = 600
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks until a concurrency slot and a budget token are available,
// or until ctx is done. On success it returns a release function that must be
// called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := l.bucket.Wait(ctx); err != nil {
		<-l.sem
		return nil, err
	}
	return func() { <-l.sem }, nil
}

// Do runs fn under the limiter. Transport errors from fn propagate as-is;
// the limiter never retries.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
