package relationship

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// SignalType classifies the user behavior that produced a signal.
type SignalType string

const (
	// SignalNavigation is a click from one content item to another.
	SignalNavigation SignalType = "navigation"
	// SignalSearch is a search followed by picking a result.
	SignalSearch SignalType = "search"
	// SignalExplicit is a user explicitly linking two items.
	SignalExplicit SignalType = "explicit"
)

// Valid reports whether t is one of the known signal types.
func (t SignalType) Valid() bool {
	switch t {
	case SignalNavigation, SignalSearch, SignalExplicit:
		return true
	default:
		return false
	}
}

// SignalEvent is one observed behavioral event suggesting two content items
// are related. Events are append-only audit records and are never mutated
// after creation; source/target keep the order the caller submitted.
type SignalEvent struct {
	ID         string                 `json:"id"`
	SourceID   string                 `json:"source_id"`
	TargetID   string                 `json:"target_id"`
	Type       SignalType             `json:"signal_type"`
	Weight     float64                `json:"weight"`
	Context    map[string]interface{} `json:"context,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewSignalEvent validates and builds a signal event. The weight is clamped
// into [0,1] rather than rejected: callers may over/undershoot from
// client-side rounding, and a request should not fail because a score was
// 1.02. Self-referential signals and unknown types are rejected outright.
// occurredAt is set by the engine, never trusted from the caller.
func NewSignalEvent(sourceID, targetID string, signalType SignalType, weight float64, context map[string]interface{}, userID string, occurredAt time.Time) (*SignalEvent, error) {
	if sourceID == "" || targetID == "" {
		return nil, apperrors.NewInvalidArgumentError("source_id and target_id are required")
	}
	if sourceID == targetID {
		return nil, apperrors.NewInvalidArgumentError("source_id and target_id must differ")
	}
	if !signalType.Valid() {
		return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("unknown signal type %q", signalType))
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, apperrors.NewInvalidArgumentError("weight must be a finite number")
	}

	return &SignalEvent{
		ID:         uuid.New().String(),
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       signalType,
		Weight:     ClampWeight(weight),
		Context:    context,
		UserID:     userID,
		OccurredAt: occurredAt,
	}, nil
}

// Pair returns the canonical pair the event contributes to.
func (e *SignalEvent) Pair() (CanonicalPair, error) {
	return Canonicalize(e.SourceID, e.TargetID)
}

// ClampWeight clamps a signal weight into [0, 1].
func ClampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
