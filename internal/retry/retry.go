package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"
)

// Policy describes how many times a call is attempted and how long to wait
// between attempts. The delay before attempt n+1 is Base*2^(n-1), capped at Max.
type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// LLMPolicy is used for language-model completions: 3 attempts, 4s doubling,
// capped at 10s.
var LLMPolicy = Policy{Attempts: 3, Base: 4 * time.Second, Max: 10 * time.Second}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.Base) * math.Pow(2, float64(attempt-1)))
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Do calls fn until it succeeds, returns a non-transient error, or the policy
// runs out of attempts. Only errors for which IsTransient reports true are
// retried. The last error is returned wrapped with the attempt count.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// transientError marks an error as safe to retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so that IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is worth retrying: explicitly marked
// errors, per-attempt deadlines, and network timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
