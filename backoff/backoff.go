// Package backoff provides retry delay strategies for failed jobs.
// All strategies are safe for concurrent use (they are stateless).
package backoff

import (
	"math"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait after failed attempt n (1-indexed).
	// Attempt 1 is the first failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Power
// ──────────────────────────────────────────────────

// maxDelay is the saturation point for overflowing exponents.
const maxDelay = time.Duration(math.MaxInt64)

// Power raises Base to the attempt number, in seconds.
// Delay = Base^attempt seconds, so with Base 2 the first failure waits 2s,
// the second 4s, the third 8s.
type Power struct {
	Base int
	Max  time.Duration
}

// NewPower creates a power backoff strategy. Zero max means uncapped.
func NewPower(base int, maxDelay time.Duration) *Power {
	return &Power{Base: base, Max: maxDelay}
}

// Delay returns Base^attempt seconds, capped at Max. Bases below 1 are
// treated as 1.
func (p *Power) Delay(attempt int) time.Duration {
	base := p.Base
	if base < 1 {
		base = 1
	}
	if attempt < 0 {
		attempt = 0
	}

	secs := int64(1)
	for range attempt {
		if secs > int64(maxDelay/time.Second)/int64(base) {
			return p.capped(maxDelay)
		}
		secs *= int64(base)
	}
	return p.capped(time.Duration(secs) * time.Second)
}

func (p *Power) capped(d time.Duration) time.Duration {
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultBase is the backoff base used when none is configured.
const DefaultBase = 2

// DefaultStrategy returns the default backoff: Power with base 2, uncapped.
func DefaultStrategy() Strategy {
	return NewPower(DefaultBase, 0)
}
