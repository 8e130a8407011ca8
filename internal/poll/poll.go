// Package poll implements the bounded retry loop shared by element resolution
// and assertions. The UI under test exposes no completion events, so every wait
// is a fixed-interval re-sample of live state until a deadline.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("poll timeout")

// TimeoutError reports an exhausted polling window.
type TimeoutError struct {
	Timeout  time.Duration
	Attempts int
	// Last is the most recent transient error returned by the condition, if any.
	Last error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("timed out after %v (%d attempts): %v", e.Timeout, e.Attempts, e.Last)
	}
	return fmt.Sprintf("timed out after %v (%d attempts)", e.Timeout, e.Attempts)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as non-retryable: Until returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Condition is sampled once per attempt. A nil error with done=false means
// "not yet"; a non-nil error is recorded and retried unless it is Permanent.
type Condition func(ctx context.Context) (done bool, err error)

// Until samples cond immediately and then once per interval until it reports
// done, returns a permanent error, timeout elapses, or ctx is cancelled.
// It returns the number of attempts made.
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) (int, error) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		attempts int
		last     error
	)
	for {
		attempts++
		done, err := cond(ctx)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				return attempts, perm.err
			}
			last = err
		} else if done {
			return attempts, nil
		}

		if !time.Now().Before(deadline) {
			return attempts, &TimeoutError{Timeout: timeout, Attempts: attempts, Last: last}
		}

		select {
		case <-ctx.Done():
			if last != nil {
				return attempts, fmt.Errorf("%w (last: %v)", ctx.Err(), last)
			}
			return attempts, ctx.Err()
		case <-ticker.C:
		}
	}
}
