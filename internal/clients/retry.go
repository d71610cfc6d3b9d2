package clients

import (
	"errors"
	"fmt"
	"time"
)

// RetryConfig defines retry behavior for throttled remote calls
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	RetryDelay  time.Duration // Base delay; attempt n waits n times this
}

// DefaultRetryConfig returns production-ready retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 5,
		RetryDelay:  2 * time.Second,
	}
}

// ThrottledError is the remote platform's signal that the caller must back
// off and retry. Any other error is returned to the caller without retry.
type ThrottledError struct {
	StatusCode int
	Message    string
}

func (e *ThrottledError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("throttled by remote platform: %s", e.Message)
	}
	return fmt.Sprintf("throttled by remote platform (status %d)", e.StatusCode)
}

// IsThrottled reports whether err carries a throttling signal.
func IsThrottled(err error) bool {
	var te *ThrottledError
	return errors.As(err, &te)
}

// Retrier retries throttled operations with linearly increasing backoff.
// Backoff state is per-call; callers dispatch sequentially so no shared
// limiter is needed.
type Retrier struct {
	config *RetryConfig
	sleep  func(time.Duration)
}

// NewRetrier creates a new retrier with the given config
func NewRetrier(config *RetryConfig) *Retrier {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retrier{config: config, sleep: time.Sleep}
}

// SetSleep overrides the wait function, for tests.
func (r *Retrier) SetSleep(sleep func(time.Duration)) {
	r.sleep = sleep
}

// Do executes fn, retrying on throttling signals. Attempt n waits
// n * RetryDelay before retrying. Non-throttle errors return immediately;
// exhausting attempts under sustained throttling returns an error wrapping
// the last throttle signal.
func (r *Retrier) Do(operation string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsThrottled(lastErr) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts {
			break
		}
		r.sleep(time.Duration(attempt) * r.config.RetryDelay)
	}
	return fmt.Errorf("max retries exceeded for %s: %w", operation, lastErr)
}
