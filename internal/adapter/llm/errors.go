package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider call failure classes. Auth errors are fatal and never retried;
// rate limiting retries with backoff up to maxAttempts; unavailability
// retries once.
var (
	ErrAuth        = errors.New("provider rejected credentials")
	ErrRateLimited = errors.New("provider rate limited")
	ErrUnavailable = errors.New("provider unavailable")
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// classifyStatus maps an HTTP status code to a provider error.
func classifyStatus(status int, body string) error {
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w: status %d", ErrAuth, status)
	case status == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, truncate(body, 200))
	default:
		return fmt.Errorf("provider returned status %d: %s", status, truncate(body, 200))
	}
}

// completeWithRetry wraps a completion call with the bounded retry policy.
func completeWithRetry(ctx context.Context, call func(context.Context) (*CompletionResponse, error)) (*CompletionResponse, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, ErrAuth):
			return nil, err
		case errors.Is(err, ErrRateLimited):
			// fall through to backoff
		case errors.Is(err, ErrUnavailable):
			if attempt >= 2 {
				return nil, err
			}
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}
