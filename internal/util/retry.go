package util

import (
	"context"
	"errors"
	"time"
)

// Backoff bounds a retry loop. The delay doubles after every failure up to
// Max; a zero Max leaves it unbounded.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultBackoff suits remote calendar APIs.
var DefaultBackoff = Backoff{Attempts: 4, Base: 500 * time.Millisecond, Max: 8 * time.Second}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error or the attempts
// run out, sleeping between calls. It returns the last error, or the
// context's error if ctx ends while waiting.
func Retry(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}
	var err error
	delay := b.Base

	for attempt := 0; attempt < b.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == b.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return err
}
