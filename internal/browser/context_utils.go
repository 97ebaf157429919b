// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext returns a context carrying ctx1's values (for chromedp, the
// target and browser handles) that is canceled as soon as either ctx1 or ctx2
// is done. ctx2 typically carries the caller's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// detachedContext keeps a parent's values but none of its cancellation.
type detachedContext struct {
	context.Context
}

func (detachedContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{}       { return nil }
func (detachedContext) Err() error                  { return nil }

// Detach returns a context with ctx's values that is never canceled. Teardown
// work uses it so an already-canceled caller context cannot skip cleanup.
func Detach(ctx context.Context) context.Context {
	return detachedContext{ctx}
}
