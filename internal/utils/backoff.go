package utils

import (
	"errors"
	"math/rand"
	"time"
)

type terminalError struct{ err error }

func (t terminalError) Error() string { return t.err.Error() }
func (t terminalError) Unwrap() error { return t.err }

// Terminal marks an error as not worth retrying. Backoff.Do returns the
// wrapped error immediately.
func Terminal(err error) error { return terminalError{err: err} }

type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

// Do runs fn up to maxRetries+1 times with exponential backoff plus jitter.
func (b Backoff) Do(fn func(attempt int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		var term terminalError
		if errors.As(err, &term) {
			return term.err
		}
		if i < b.maxRetries {
			sleep := time.Duration(1<<i) * b.base
			sleep += time.Duration(rand.Int63n(int64(b.base)))
			time.Sleep(sleep)
		}
	}
	return err
}
