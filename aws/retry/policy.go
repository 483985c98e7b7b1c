// Package retry implements the pluggable, non-blocking retry policies
// consulted by the client orchestrator between attempts: no-retry,
// exponential backoff, and full-jitter backoff.
package retry

import (
	"errors"
	"math/rand"
	"time"

	awscore "github.com/prn-tf/awscore/aws"
)

// Policy decides whether an attempt should be retried and how long to wait
// before the next one. ShouldRetry and Delay are called with the same
// (attempt, err) pair; implementations must be stateless and safe for
// concurrent use across requests, since a single Policy value is shared by
// every in-flight request on a client.
type Policy interface {
	// ShouldRetry reports whether attempt (1-based, the attempt that just
	// failed) should be retried given err.
	ShouldRetry(attempt int, err error) bool
	// Delay returns how long to wait before issuing the next attempt.
	Delay(attempt int) time.Duration
	// MaxAttempts bounds the total attempts regardless of ShouldRetry.
	MaxAttempts() int
}

// IsRetryable classifies an error as retry-eligible: transient transport
// failures, 5xx server errors, and 4xx client errors that signal
// throttling — HTTP 429, or a decoded code of Throttling /
// TooManyRequests / RequestLimitExceeded (decoder.DecodeResponse strips
// the "Exception" suffix before these codes ever reach here).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *awscore.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.IsTransient()
	}

	var serverErr *awscore.AWSServerError
	if errors.As(err, &serverErr) {
		return true
	}

	var clientErr *awscore.AWSClientError
	if errors.As(err, &clientErr) {
		if clientErr.StatusCode == 429 {
			return true
		}
		switch clientErr.Code {
		case "Throttling", "TooManyRequests", "RequestLimitExceeded":
			return true
		}
		return false
	}

	return false
}

// randSource is process-wide; math/rand's top-level functions are safe for
// concurrent use since Go 1.20 draws from a per-goroutine source, matching
// what a non-blocking retry scheduler needs with no extra locking.
var randFloat64 = rand.Float64
