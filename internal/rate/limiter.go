// Package rate gates outbound calls to the upstream mail providers so a
// single page request cannot burst past their per-user quotas.
package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter is the small interface the provider clients wait on before every
// upstream call.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket releases a fixed number of tokens per second.
type TokenBucket struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	stopDone chan struct{}
}

// NewTokenBucket returns a limiter releasing rps tokens per second. The
// first Wait proceeds immediately so a cold request is not delayed.
func NewTokenBucket(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	tb := &TokenBucket{
		ticker:   time.NewTicker(time.Second / time.Duration(rps)),
		tokens:   make(chan struct{}, rps),
		stopDone: make(chan struct{}),
	}
	tb.tokens <- struct{}{}
	go tb.refill()
	return tb
}

func (t *TokenBucket) refill() {
	defer close(t.stopDone)
	for range t.ticker.C {
		select {
		case t.tokens <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until a token is available or ctx is done.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop releases the ticker goroutine.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	<-t.stopDone
}

var _ Limiter = (*TokenBucket)(nil)

// None is a pass-through limiter for tests and unthrottled setups.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
