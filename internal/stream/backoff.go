package stream

import (
	"math/rand/v2"
	"time"
)

const (
	DefaultBackoffBase = time.Second
	DefaultBackoffMax  = 30 * time.Second

	// Doubling stops here regardless of the cap, to keep the shift sane.
	maxBackoffShift = 20
)

// backoffCeiling is the exponential envelope for the given attempt number
// (0-based): base, 2*base, 4*base, ... capped at max.
func backoffCeiling(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if max <= 0 {
		max = DefaultBackoffMax
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	c := base << uint(attempt)
	if c <= 0 || c > max {
		c = max
	}
	return c
}

// jitteredDelay picks the actual wait for an attempt: uniform within the
// upper half of the ceiling. Successive attempts never wait less than the
// previous one could, while still spreading reconnects apart.
func jitteredDelay(base, max time.Duration, attempt int) time.Duration {
	c := backoffCeiling(base, max, attempt)
	half := c / 2
	if half <= 0 {
		return c
	}
	return half + rand.N(half)
}
