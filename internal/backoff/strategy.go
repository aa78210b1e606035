package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the wait before the given retry. Retries are numbered
// from 1: the first retry follows the first failure.
type Strategy interface {
	Calculate(retry int, base, max time.Duration) time.Duration
}

// ExponentialStrategy doubles the delay on every retry: base, 2*base, 4*base...
type ExponentialStrategy struct{}

// Calculate returns 2^(retry-1) * base, capped at max.
func (ExponentialStrategy) Calculate(retry int, base, max time.Duration) time.Duration {
	if retry < 1 {
		retry = 1
	}

	// Prevent overflow by limiting retry
	if retry > 31 {
		retry = 31
	}

	delay := time.Duration(float64(base) * pow(2, retry-1))
	if max > 0 && (delay < 0 || delay > max) {
		delay = max
	}
	return delay
}

// ExponentialJitterStrategy adds up to Jitter (0..1) of extra random delay on
// top of the exponential value.
type ExponentialJitterStrategy struct {
	Jitter float64
}

// Calculate implements Strategy.
func (s ExponentialJitterStrategy) Calculate(retry int, base, max time.Duration) time.Duration {
	delay := ExponentialStrategy{}.Calculate(retry, base, max)

	jitter := clampJitter(s.Jitter)
	if jitter > 0 {
		delay += time.Duration(float64(delay) * jitter * rand.Float64())
		if max > 0 && delay > max {
			delay = max
		}
	}
	return delay
}

// clampJitter ensures jitter is within valid bounds [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
