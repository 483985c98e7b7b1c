package retry

import "time"

// NoRetryPolicy never retries; Delay is never consulted since ShouldRetry
// always returns false.
type NoRetryPolicy struct{}

func (NoRetryPolicy) ShouldRetry(attempt int, err error) bool { return false }
func (NoRetryPolicy) Delay(attempt int) time.Duration         { return 0 }
func (NoRetryPolicy) MaxAttempts() int                        { return 1 }
