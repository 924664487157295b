package behavior

import (
	"context"
	"time"
)

// Sleeper suspends the current pass for d. It returns early with a non-nil
// error if ctx is done first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper: a timer wait that honours ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
