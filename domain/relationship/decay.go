package relationship

import (
	"math"
	"time"
)

// ScoringConfig holds the tunable constants of the aggregation formula.
// These are configuration, not hardcoded values, so operators can retune
// the ranking without a code change.
type ScoringConfig struct {
	// HalfLife is the time for an untouched strength value to halve.
	// Zero or negative disables decay entirely (used by the co-occurrence
	// store, which tracks historical frequency, not freshness).
	HalfLife time.Duration

	// Per-type weights applied when computing total strength. Explicit
	// user-authored links are the strongest evidence of relatedness;
	// navigation clicks are the weakest and noisiest.
	NavigationWeight float64
	SearchWeight     float64
	ExplicitWeight   float64

	// StrengthCap bounds each per-type accumulator so repeated
	// reinforcement cannot grow an edge without limit.
	StrengthCap float64
}

// DefaultScoringConfig returns the default aggregation constants:
// 30-day half-life, type weights 0.3/0.6/1.0, cap 10.0.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		HalfLife:         30 * 24 * time.Hour,
		NavigationWeight: 0.3,
		SearchWeight:     0.6,
		ExplicitWeight:   1.0,
		StrengthCap:      10.0,
	}
}

// WeightFor returns the total-strength multiplier for a signal type.
func (c ScoringConfig) WeightFor(t SignalType) float64 {
	switch t {
	case SignalNavigation:
		return c.NavigationWeight
	case SignalSearch:
		return c.SearchWeight
	case SignalExplicit:
		return c.ExplicitWeight
	default:
		return 0
	}
}

// Decay computes the half-life decayed value of a stored quantity:
//
//	value * 0.5^(elapsed / halfLife)
//
// It returns value unchanged when no time has elapsed (or the clock ran
// backwards), is monotonically non-increasing in elapsed time, and
// asymptotically approaches zero without ever going negative or producing
// NaN for a finite non-negative input.
func Decay(value float64, lastUpdated, now time.Time, halfLife time.Duration) float64 {
	if value <= 0 {
		return 0
	}
	if halfLife <= 0 {
		// No decay configured.
		return value
	}
	elapsed := now.Sub(lastUpdated)
	if elapsed <= 0 {
		return value
	}
	return value * math.Pow(0.5, elapsed.Seconds()/halfLife.Seconds())
}
