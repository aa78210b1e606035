package backoff

import (
	"time"
)

// Calculator binds a Strategy to a base delay and an upper bound.
type Calculator struct {
	strategy Strategy
	base     time.Duration
	max      time.Duration
}

// NewCalculator creates a calculator. A nil strategy means ExponentialStrategy.
func NewCalculator(strategy Strategy, base, max time.Duration) *Calculator {
	if strategy == nil {
		strategy = ExponentialStrategy{}
	}
	return &Calculator{
		strategy: strategy,
		base:     base,
		max:      max,
	}
}

// Delay returns the wait before the given retry (1-based).
func (c *Calculator) Delay(retry int) time.Duration {
	return c.strategy.Calculate(retry, c.base, c.max)
}

// Strategy returns the strategy in use.
func (c *Calculator) Strategy() Strategy {
	return c.strategy
}
