package extractor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// RetryPolicy bounds retries of provider requests.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	// Values below 2 disable retrying.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier scales the backoff after each attempt.
	BackoffMultiplier float64

	// MaxBackoff caps the backoff growth.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy matches the configured defaults: three attempts,
// one second initial backoff, doubling up to ten seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2,
		MaxBackoff:        10 * time.Second,
	}
}

// httpError is a non-2xx provider response.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Body)
}

// isRetryable reports whether a request error is worth retrying: network
// timeouts, rate limiting, and server-side failures.
func isRetryable(err error) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// withRetry executes fn under the policy, backing off exponentially
// between attempts. Non-retryable errors and context cancellation abort
// immediately.
func withRetry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if policy.MaxAttempts <= 1 {
		return fn(ctx)
	}

	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * policy.BackoffMultiplier)
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	return zero, fmt.Errorf("max retry attempts reached: %w", lastErr)
}
