package httpclient

import (
	"context"
	"time"

	"github.com/KoduruNani/Flipkart-2/apierr"
)

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout runs op under a cancellable context and returns whichever comes
// first: op's result or a request timeout error after d. On timeout the
// context passed to op is cancelled so the operation can stop consuming
// resources; the caller never waits for it to acknowledge. A non-positive d
// runs op without a deadline.
func WithTimeout[T any](ctx context.Context, d time.Duration, endpoint string, op func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so a late op can always deliver and exit.
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		cancel()
		return zero, apierr.Timeout(endpoint, context.DeadlineExceeded)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
