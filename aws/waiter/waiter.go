// Package waiter implements the poll-and-match state-convergence helper
// (C11): repeatedly invoke an operation and evaluate a list of acceptors
// until one matches success, failure, or the wait budget is exhausted.
package waiter

import (
	"context"
	"time"

	awscore "github.com/prn-tf/awscore/aws"
)

// MatchResult is what an Acceptor decides after inspecting one poll's
// output or error.
type MatchResult int

const (
	// MatchRetry means keep polling.
	MatchRetry MatchResult = iota
	// MatchSuccess means the waiter should return immediately with success.
	MatchSuccess
	// MatchFailure means the waiter should abort with an error.
	MatchFailure
)

// Acceptor inspects the result of one poll (output may be nil on error) and
// decides whether to keep waiting, succeed, or fail.
type Acceptor func(output interface{}, pollErr error) MatchResult

// Config bounds one Wait call: the acceptors tried in order on every poll,
// the poll-delay schedule, and the overall wait budget.
type Config struct {
	Acceptors []Acceptor
	MinDelay  time.Duration
	MaxDelay  time.Duration
	MaxWait   time.Duration
}

// Command invokes the underlying operation once per poll.
type Command func(ctx context.Context) (interface{}, error)

// Wait polls cmd, evaluating cfg.Acceptors in order after each attempt,
// until one Acceptor returns MatchSuccess or MatchFailure, the context is
// cancelled, or cfg.MaxWait elapses — whichever comes first. The delay
// between polls is min(MaxDelay, MinDelay*2^consecutiveRetries).
func Wait(ctx context.Context, cfg Config, cmd Command) error {
	deadline := time.Now().Add(cfg.MaxWait)
	consecutiveRetries := 0

	for {
		output, err := cmd(ctx)

		for _, accept := range cfg.Acceptors {
			switch accept(output, err) {
			case MatchSuccess:
				return nil
			case MatchFailure:
				if err != nil {
					return &awscore.WaiterError{Cause: err}
				}
				return &awscore.WaiterError{Cause: awscore.ErrProtocolDecode}
			case MatchRetry:
				// keep checking remaining acceptors, then poll again
			}
		}

		if time.Now().After(deadline) {
			return &awscore.WaiterError{}
		}

		delay := pollDelay(cfg.MinDelay, cfg.MaxDelay, consecutiveRetries)
		if remaining := time.Until(deadline); delay > remaining {
			delay = remaining
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		consecutiveRetries++
	}
}

func pollDelay(minDelay, maxDelay time.Duration, consecutiveRetries int) time.Duration {
	delay := minDelay
	for i := 0; i < consecutiveRetries; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// PathAcceptor matches a single scalar field against an expected value,
// returning onMatch when it matches and MatchRetry otherwise — a waiter
// config typically composes one PathAcceptor per distinct expected value
// (e.g. one for the success state, one for each known failure state).
func PathAcceptor(get func(output interface{}) (string, bool), expected string, onMatch MatchResult) Acceptor {
	return func(output interface{}, pollErr error) MatchResult {
		if pollErr != nil || output == nil {
			return MatchRetry
		}
		value, ok := get(output)
		if !ok {
			return MatchRetry
		}
		if value == expected {
			return onMatch
		}
		return MatchRetry
	}
}

// AnyPathAcceptor matches when at least one element of an array field
// equals expected (existential quantification).
func AnyPathAcceptor(getArray func(output interface{}) ([]interface{}, bool), getElement func(elem interface{}) (string, bool), expected string, onMatch MatchResult) Acceptor {
	return func(output interface{}, pollErr error) MatchResult {
		if pollErr != nil || output == nil {
			return MatchRetry
		}
		arr, ok := getArray(output)
		if !ok {
			return MatchRetry
		}
		for _, elem := range arr {
			if value, ok := getElement(elem); ok && value == expected {
				return onMatch
			}
		}
		return MatchRetry
	}
}

// AllPathAcceptor matches when every element of an array field equals
// expected (universal quantification over a non-empty array).
func AllPathAcceptor(getArray func(output interface{}) ([]interface{}, bool), getElement func(elem interface{}) (string, bool), expected string, onMatch MatchResult) Acceptor {
	return func(output interface{}, pollErr error) MatchResult {
		if pollErr != nil || output == nil {
			return MatchRetry
		}
		arr, ok := getArray(output)
		if !ok || len(arr) == 0 {
			return MatchRetry
		}
		for _, elem := range arr {
			value, ok := getElement(elem)
			if !ok || value != expected {
				return MatchRetry
			}
		}
		return onMatch
	}
}

// ErrorCodeAcceptor matches against the Code of a decoded ServiceError.
func ErrorCodeAcceptor(code string, onMatch MatchResult) Acceptor {
	return func(output interface{}, pollErr error) MatchResult {
		var svcErr *awscore.ServiceError
		if asServiceError(pollErr, &svcErr) && svcErr.Code == code {
			return onMatch
		}
		return MatchRetry
	}
}

// ErrorStatusAcceptor matches against the HTTP status of a decoded
// ServiceError.
func ErrorStatusAcceptor(status int, onMatch MatchResult) Acceptor {
	return func(output interface{}, pollErr error) MatchResult {
		var svcErr *awscore.ServiceError
		if asServiceError(pollErr, &svcErr) && svcErr.StatusCode == status {
			return onMatch
		}
		return MatchRetry
	}
}

func asServiceError(err error, target **awscore.ServiceError) bool {
	switch e := err.(type) {
	case *awscore.AWSClientError:
		*target = &e.ServiceError
		return true
	case *awscore.AWSServerError:
		*target = &e.ServiceError
		return true
	case *awscore.AWSResponseError:
		*target = &e.ServiceError
		return true
	default:
		return false
	}
}
