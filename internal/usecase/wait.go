package usecase

import (
	"context"
	"time"
)

// settle waits for the remote page's scripted side effects, honoring
// cancellation. Every call site bounds the wait explicitly. It is a
// variable so tests can swap the real sleep for an immediate return.
var settle = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
