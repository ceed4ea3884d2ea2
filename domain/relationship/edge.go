package relationship

import (
	"time"
)

// RelationshipEdge is the aggregated, mutable state of one unordered content
// pair: one row per pair that has ever received a signal. Edges are created
// lazily on first signal and never deleted; an untouched edge only fades
// toward zero through decay. SignalCount and LastSeen are owned exclusively
// by the aggregator.
type RelationshipEdge struct {
	Pair CanonicalPair `json:"pair"`

	// Per-type decayed accumulators, each clamped to the strength cap.
	NavigationStrength float64 `json:"navigation_strength"`
	SearchStrength     float64 `json:"search_strength"`
	ExplicitStrength   float64 `json:"explicit_strength"`

	// SignalCount is the number of signals ever merged into this edge.
	// It is monotonically increasing and never decayed.
	SignalCount int64 `json:"signal_count"`

	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRelationshipEdge creates a zero-valued edge for a pair.
func NewRelationshipEdge(pair CanonicalPair, now time.Time) *RelationshipEdge {
	return &RelationshipEdge{
		Pair:      pair,
		LastSeen:  now,
		CreatedAt: now,
	}
}

// Merge folds one signal into the edge: every bucket is first decayed to
// now, then the clamped weight is added to the bucket matching the signal
// type, and each bucket is capped. Buckets decay and accumulate
// independently; the derived total is never stored.
func (e *RelationshipEdge) Merge(signalType SignalType, weight float64, cfg ScoringConfig, now time.Time) {
	e.NavigationStrength = Decay(e.NavigationStrength, e.LastSeen, now, cfg.HalfLife)
	e.SearchStrength = Decay(e.SearchStrength, e.LastSeen, now, cfg.HalfLife)
	e.ExplicitStrength = Decay(e.ExplicitStrength, e.LastSeen, now, cfg.HalfLife)

	contribution := ClampWeight(weight)
	switch signalType {
	case SignalNavigation:
		e.NavigationStrength = capStrength(e.NavigationStrength+contribution, cfg.StrengthCap)
	case SignalSearch:
		e.SearchStrength = capStrength(e.SearchStrength+contribution, cfg.StrengthCap)
	case SignalExplicit:
		e.ExplicitStrength = capStrength(e.ExplicitStrength+contribution, cfg.StrengthCap)
	}

	e.SignalCount++
	e.LastSeen = now
}

// StrengthBreakdown is the decayed, type-weighted contribution of each
// signal type at a point in time.
type StrengthBreakdown struct {
	Navigation float64 `json:"navigation"`
	Search     float64 `json:"search"`
	Explicit   float64 `json:"explicit"`
}

// Total is the sum of the per-type contributions.
func (b StrengthBreakdown) Total() float64 {
	return b.Navigation + b.Search + b.Explicit
}

// BreakdownAt computes the decayed per-type contributions at now. Total
// strength is always derived at read time so results reflect decay since
// the last write without a background sweep, and the formula can change
// without a storage migration.
func (e *RelationshipEdge) BreakdownAt(cfg ScoringConfig, now time.Time) StrengthBreakdown {
	return StrengthBreakdown{
		Navigation: Decay(e.NavigationStrength, e.LastSeen, now, cfg.HalfLife) * cfg.NavigationWeight,
		Search:     Decay(e.SearchStrength, e.LastSeen, now, cfg.HalfLife) * cfg.SearchWeight,
		Explicit:   Decay(e.ExplicitStrength, e.LastSeen, now, cfg.HalfLife) * cfg.ExplicitWeight,
	}
}

// TotalStrengthAt computes the derived total strength at now.
func (e *RelationshipEdge) TotalStrengthAt(cfg ScoringConfig, now time.Time) float64 {
	return e.BreakdownAt(cfg, now).Total()
}

func capStrength(v, cap float64) float64 {
	if cap > 0 && v > cap {
		return cap
	}
	return v
}
