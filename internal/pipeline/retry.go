package pipeline

import "context"

// withRetry runs fn up to maxAttempts times and returns the first
// successful result. There is no backoff between attempts; the style
// analysis call this wraps is retried exactly once, and the rare
// transient failures it sees (timeouts, 5xx) gain nothing from waiting.
// The context is checked before every attempt so cancellation is not
// swallowed by the retry loop.
func withRetry[T any](ctx context.Context, maxAttempts int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for range maxAttempts {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return zero, lastErr
}
