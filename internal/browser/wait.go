// internal/browser/wait.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotReady is returned by WaitUntil when the condition never became true
// within the timeout.
var ErrNotReady = errors.New("condition not met before timeout")

// Condition is polled by WaitUntil. A true result stops the wait; an error
// aborts it immediately.
type Condition func(ctx context.Context) (bool, error)

// WaitUntil polls cond every interval until it reports true, the timeout
// elapses, or ctx is canceled. The condition is evaluated once immediately,
// so an already-satisfied condition returns without sleeping.
func WaitUntil(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if err != nil {
			return fmt.Errorf("condition check failed: %w", err)
		}
		if ok {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w (waited %v)", ErrNotReady, timeout)
		case <-ticker.C:
		}
	}
}
