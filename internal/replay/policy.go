package replay

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how a batch submission is retried on transient
// failure. It is injected into the transport so tests can swap in a
// zero-delay schedule instead of sleeping.
type Policy struct {
	// MaxAttempts bounds submissions per batch per Replay call,
	// including the first attempt.
	MaxAttempts int
	// NewBackOff builds a fresh schedule for each batch.
	NewBackOff func() backoff.BackOff
}

// NewPolicy builds an exponential doubling schedule (initial, 2x, 4x,
// ...) capped per-interval at thirty seconds.
func NewPolicy(maxAttempts int, initial time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = initial
			bo.Multiplier = 2
			bo.RandomizationFactor = 0
			bo.MaxInterval = 30 * time.Second
			return bo
		},
	}
}

// DefaultPolicy retries a batch three times with exponential backoff
// starting at one second (1s, 2s, 4s, ...).
func DefaultPolicy() Policy {
	return NewPolicy(3, time.Second)
}

// ZeroDelayPolicy retries immediately. For tests.
func ZeroDelayPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(0)
		},
	}
}
