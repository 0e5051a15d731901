// Package retry implements the backoff policy shared by all publish sub-tasks.
package retry

import (
	"math/rand/v2"
	"time"

	"github.com/pressline/pressline/pkg/publisher"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMultiplier  = 2.0
	DefaultMaxDelay    = 30 * time.Second
)

// Decision is the outcome of consulting the policy after a failed attempt.
type Decision struct {
	Retry bool
	After time.Duration
}

// GiveUp is the terminal decision.
var GiveUp = Decision{}

// Policy computes whether and when a failed unit of work should retry:
// exponential backoff with a cap and uniform jitter, bounded by a maximum
// attempt count. The jitter keeps concurrently failing targets from retrying
// in lockstep. The policy is a pure decision function; callers own the waiting.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	// rng overrides the jitter source in tests.
	rng func() float64
}

// DefaultPolicy returns the policy used when no retry configuration is given.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Next decides what to do after attempt number attempt (1-based) failed with
// err. Non-retryable errors short-circuit to GiveUp regardless of the attempt
// budget; retrying a structurally wrong request only wastes quota and delays
// the failure report.
func (p Policy) Next(attempt int, err error) Decision {
	if !publisher.IsRetryable(err) {
		return GiveUp
	}

	if attempt >= p.MaxAttempts {
		return GiveUp
	}

	return Decision{Retry: true, After: p.delay(attempt)}
}

// delay computes the backoff before attempt+1: base * multiplier^(attempt-1),
// capped, then jittered uniformly within [0.5, 1.5) of the computed value.
func (p Policy) delay(attempt int) time.Duration {
	backoff := float64(p.BaseDelay)
	for range attempt - 1 {
		backoff *= p.Multiplier
	}

	if capped := float64(p.MaxDelay); backoff > capped {
		backoff = capped
	}

	jitter := p.rng
	if jitter == nil {
		jitter = rand.Float64
	}

	return time.Duration(backoff * (0.5 + jitter()))
}
