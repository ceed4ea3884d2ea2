package relationship

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecayIdentityAtZeroElapsed(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 5.0, Decay(5.0, now, now, 30*24*time.Hour))
}

func TestDecayHalvesAtHalfLife(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	halfLife := 30 * 24 * time.Hour

	assert.InDelta(t, 2.0, Decay(4.0, last, last.Add(halfLife), halfLife), 1e-9)
	assert.InDelta(t, 1.0, Decay(4.0, last, last.Add(2*halfLife), halfLife), 1e-9)
}

func TestDecayIsMonotonicNonIncreasing(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	halfLife := 24 * time.Hour

	prev := math.Inf(1)
	for _, elapsed := range []time.Duration{0, time.Second, time.Minute, time.Hour, 24 * time.Hour, 365 * 24 * time.Hour} {
		v := Decay(3.0, last, last.Add(elapsed), halfLife)
		assert.LessOrEqual(t, v, prev, "elapsed %v", elapsed)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.False(t, math.IsNaN(v))
		prev = v
	}
}

func TestDecayClockSkewReturnsValueUnchanged(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 2.5, Decay(2.5, now.Add(time.Hour), now, 24*time.Hour))
}

func TestDecayDisabledWithNonPositiveHalfLife(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 7.0, Decay(7.0, last, last.Add(1000*24*time.Hour), 0))
}

func TestScoringConfigWeightFor(t *testing.T) {
	cfg := DefaultScoringConfig()
	assert.Equal(t, 0.3, cfg.WeightFor(SignalNavigation))
	assert.Equal(t, 0.6, cfg.WeightFor(SignalSearch))
	assert.Equal(t, 1.0, cfg.WeightFor(SignalExplicit))
	assert.Equal(t, 0.0, cfg.WeightFor(SignalType("bogus")))
}
