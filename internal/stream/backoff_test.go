package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffCeiling(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	prev := time.Duration(0)
	for attempt := 0; attempt < 40; attempt++ {
		c := backoffCeiling(base, max, attempt)
		assert.GreaterOrEqual(t, c, prev, "ceiling must never shrink")
		assert.LessOrEqual(t, c, max, "ceiling must respect the cap")
		prev = c
	}

	assert.Equal(t, time.Second, backoffCeiling(base, max, 0))
	assert.Equal(t, 2*time.Second, backoffCeiling(base, max, 1))
	assert.Equal(t, 16*time.Second, backoffCeiling(base, max, 4))
	assert.Equal(t, max, backoffCeiling(base, max, 5))
	assert.Equal(t, max, backoffCeiling(base, max, 25))
}

func TestBackoffCeilingDefaults(t *testing.T) {
	assert.Equal(t, DefaultBackoffBase, backoffCeiling(0, 0, 0))
	assert.Equal(t, DefaultBackoffMax, backoffCeiling(0, 0, 30))
}

func TestJitteredDelayBounds(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	for attempt := 0; attempt < 10; attempt++ {
		c := backoffCeiling(base, max, attempt)
		for i := 0; i < 50; i++ {
			d := jitteredDelay(base, max, attempt)
			assert.GreaterOrEqual(t, d, c/2, "delay below jitter window")
			assert.LessOrEqual(t, d, c, "delay above ceiling")
		}
	}
}

// Successive windows must not overlap downwards: the smallest possible delay
// for attempt n+1 is at least the largest for attempt n, until the cap.
func TestJitteredDelayNonDecreasingWindows(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	for attempt := 0; attempt < 6; attempt++ {
		currentMax := backoffCeiling(base, max, attempt)
		nextMin := backoffCeiling(base, max, attempt+1) / 2
		assert.GreaterOrEqual(t, nextMin, currentMax,
			"attempt %d window overlaps the previous one", attempt+1)
	}
}
