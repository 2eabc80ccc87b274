package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/ouranotify/pkg/logger"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// retryableStatus lists the HTTP statuses that are worth another attempt.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryableStatus reports whether an HTTP status is transient.
func IsRetryableStatus(code int) bool {
	return retryableStatus[code]
}

// TransientError marks a failure that may succeed on another attempt.
// After, when positive, replaces the policy backoff for the next wait.
type TransientError struct {
	Err   error
	After time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so Policy.Do retries it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// TransientAfter wraps err with an explicit wait before the next attempt.
func TransientAfter(err error, after time.Duration) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err, After: after}
}

// Policy is a bounded retry with an explicit backoff function.
type Policy struct {
	Name        string
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Linear returns backoff × attempt.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// NewPolicy builds a policy with linear backoff.
func NewPolicy(name string, maxAttempts int, backoff time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return Policy{
		Name:        name,
		MaxAttempts: maxAttempts,
		Backoff:     Linear(backoff),
	}
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempts are exhausted. The error of the last attempt is returned
// without the transient wrapper.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var te *TransientError
		if !errors.As(err, &te) {
			return err
		}
		lastErr = te.Err

		if attempt == attempts {
			break
		}

		wait := te.After
		if wait <= 0 && p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		logger.Warnf("[Retry] %s attempt %d/%d failed: %v, retrying in %v", p.Name, attempt, attempts, te.Err, wait)

		if err := p.sleep(ctx, wait); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return lastErr
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
