package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressline/pressline/pkg/publisher"
)

var errTimeout = publisher.NewTransientError("wordpress", errors.New("timeout"))

func TestPolicy_Next_RetriesTransientErrors(t *testing.T) {
	policy := DefaultPolicy()

	decision := policy.Next(1, errTimeout)
	assert.True(t, decision.Retry)
	assert.Positive(t, decision.After)
}

func TestPolicy_Next_GivesUpAfterMaxAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: time.Minute}

	assert.True(t, policy.Next(1, errTimeout).Retry)
	assert.True(t, policy.Next(2, errTimeout).Retry)
	assert.Equal(t, GiveUp, policy.Next(3, errTimeout))
	assert.Equal(t, GiveUp, policy.Next(4, errTimeout))
}

func TestPolicy_Next_ShortCircuitsNonRetryableErrors(t *testing.T) {
	policy := DefaultPolicy()

	permanent := publisher.NewPermanentError("wordpress", errors.New("rejected"))
	assert.Equal(t, GiveUp, policy.Next(1, permanent))

	validation := publisher.NewValidationError("wordpress", errors.New("bad config"))
	assert.Equal(t, GiveUp, policy.Next(1, validation))
}

func TestPolicy_Next_UnclassifiedErrorsAreTransient(t *testing.T) {
	policy := DefaultPolicy()

	assert.True(t, policy.Next(1, errors.New("connection reset")).Retry)
}

func TestPolicy_DelaysIncreaseExponentiallyUpToCap(t *testing.T) {
	policy := Policy{
		MaxAttempts: 6,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    5 * time.Second,
		rng:         func() float64 { return 0.5 }, // jitter factor pinned to 1.0
	}

	var delays []time.Duration

	for attempt := 1; attempt < policy.MaxAttempts; attempt++ {
		decision := policy.Next(attempt, errTimeout)
		require.True(t, decision.Retry)

		delays = append(delays, decision.After)
	}

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second, // capped
		5 * time.Second,
	}, delays)
}

func TestPolicy_JitterStaysWithinComputedInterval(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2, MaxDelay: time.Minute}

	for range 100 {
		decision := policy.Next(1, errTimeout)
		require.True(t, decision.Retry)
		assert.GreaterOrEqual(t, decision.After, 500*time.Millisecond)
		assert.Less(t, decision.After, 1500*time.Millisecond)
	}
}
