package humanoid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// retryable is implemented by errors that know whether a repeat can help.
type retryable interface {
	Retryable() bool
}

// Retry runs op up to maxAttempts times, pausing a General delay between
// attempts, and returns the last error when every attempt fails. Context
// errors and errors reporting Retryable() == false end the loop at once.
func (p *Policy) Retry(ctx context.Context, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		attempt int
		lastErr error
	)
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		lastErr = op(ctx)
		if lastErr != nil && !shouldRetry(ctx, lastErr) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}
	notify := func(err error, next time.Duration) {
		p.logger.Warn("Attempt failed, retrying.",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(pacedBackOff{p}, uint64(maxAttempts-1)), ctx)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, &sleeperTimer{ctx: ctx, sleep: p.sleep, c: make(chan time.Time, 1)})

	// Cancelled between attempts: keep the reason the last attempt failed.
	if err != nil && lastErr != nil && err != lastErr && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return fmt.Errorf("%w (last attempt: %v)", err, lastErr)
	}
	return err
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// pacedBackOff waits a General jittered delay before every retry.
type pacedBackOff struct {
	p *Policy
}

func (b pacedBackOff) NextBackOff() time.Duration { return b.p.Delay(General) }
func (pacedBackOff) Reset()                       {}

// sleeperTimer drives backoff's wait through the policy's Sleeper so
// NoDelay and test sleepers apply to retries too. Start blocks for the
// delay and then makes C ready; it never ticks once ctx is done.
type sleeperTimer struct {
	ctx   context.Context
	sleep Sleeper
	c     chan time.Time
}

func (t *sleeperTimer) Start(d time.Duration) {
	if err := t.sleep(t.ctx, d); err != nil && t.ctx.Err() != nil {
		return
	}
	select {
	case t.c <- time.Now():
	default:
	}
}

func (t *sleeperTimer) Stop() {}

func (t *sleeperTimer) C() <-chan time.Time { return t.c }
