// Package retry wraps outbound model calls with rate-limit admission,
// failure classification and bounded retries.
package retry

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransient covers network blips and unexpected provider errors.
	KindTransient ErrorKind = iota
	// KindRateLimited means the provider throttled the call (HTTP 429 and friends).
	KindRateLimited
	// KindQuotaExceeded means billing or hard quota limits were hit. Never retried.
	KindQuotaExceeded
)

// String returns a human-readable representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

var (
	// ErrRateLimited matches any CallError caused by throttling.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded is fatal to the run.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrRetryExhausted means throttling persisted past the retry budget.
	ErrRetryExhausted = errors.New("retry budget exhausted")
)

// CallError is returned by Retrier.Execute for quota failures and exhausted
// rate-limit retries. It wraps the last provider error.
type CallError struct {
	Kind      ErrorKind
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *CallError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s: %s after %d attempts: %v", ErrRetryExhausted, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels against a CallError.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.Kind == KindQuotaExceeded
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrRetryExhausted:
		return e.Exhausted
	default:
		return false
	}
}

// IsFatal reports whether err should end the whole run rather than a single turn.
func IsFatal(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrRetryExhausted)
}
