package usecase

import (
	"context"
	"time"
)

// StubSettle makes the page-settle wait return immediately so the suite
// exercises control flow without real sleeps. The returned function
// restores the real wait.
func StubSettle() (restore func()) {
	prev := settle
	settle = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
	return func() { settle = prev }
}
