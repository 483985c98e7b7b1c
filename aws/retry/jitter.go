package retry

import "time"

// JitterPolicy draws the delay for attempt N uniformly from
// [ceiling/2, ceiling), where ceiling = min(MaxDelay, BaseDelay*2^(N-1)).
// Spreading retries over a half-open window, rather than full jitter down to
// zero, avoids a thundering-herd retry at the same instant it was meant to
// prevent.
type JitterPolicy struct {
	// Attempts is the number of retries allowed after the first try, so
	// NewJitterPolicy(N, ...) permits up to N+1 attempts total.
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewJitterPolicy builds a JitterPolicy allowing up to attempts retries
// after the first try, with base delay baseDelay, capping the exponential
// ceiling at maxDelay.
func NewJitterPolicy(attempts int, baseDelay, maxDelay time.Duration) *JitterPolicy {
	return &JitterPolicy{Attempts: attempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
}

func (p *JitterPolicy) ShouldRetry(attempt int, err error) bool {
	return attempt <= p.Attempts && IsRetryable(err)
}

func (p *JitterPolicy) Delay(attempt int) time.Duration {
	ceiling := p.BaseDelay
	for i := 1; i < attempt; i++ {
		ceiling *= 2
		if ceiling >= p.MaxDelay {
			ceiling = p.MaxDelay
			break
		}
	}
	if ceiling <= 0 {
		return 0
	}
	floor := ceiling / 2
	return floor + time.Duration(randFloat64()*float64(ceiling-floor))
}

func (p *JitterPolicy) MaxAttempts() int { return p.Attempts + 1 }
