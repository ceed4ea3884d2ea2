package relationship

import (
	"fmt"
	"time"

	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// TagCoOccurrencePair counts how many times two tags were applied together
// to the same content item. Co-occurrence is historical frequency used for
// suggestion ranking, not a behavioral-freshness signal, so it carries no
// decay and no cap.
type TagCoOccurrencePair struct {
	Pair      CanonicalPair `json:"pair"`
	Count     int64         `json:"count"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RelationType classifies a curated tag relationship. The asymmetric types
// imply direction from Tag1 to Tag2 (e.g. Tag1 is a tool of Tag2).
type RelationType string

const (
	RelationRelated     RelationType = "related"
	RelationToolOf      RelationType = "tool_of"
	RelationTechniqueOf RelationType = "technique_of"
	RelationPartOf      RelationType = "part_of"
)

// Valid reports whether t is one of the known relation types.
func (t RelationType) Valid() bool {
	switch t {
	case RelationRelated, RelationToolOf, RelationTechniqueOf, RelationPartOf:
		return true
	default:
		return false
	}
}

// CuratedTagRelationship is a manually authored edge between two tags.
// It is written directly by administrators, never aggregated from signals,
// and never decayed.
type CuratedTagRelationship struct {
	ID        string       `json:"id"`
	Tag1      string       `json:"tag1"`
	Tag2      string       `json:"tag2"`
	Type      RelationType `json:"relationship_type"`
	Strength  float64      `json:"strength"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewCuratedTagRelationship validates and builds a curated relationship.
// Unlike signal weights, an out-of-range strength here is an admin authoring
// mistake and is rejected, not clamped.
func NewCuratedTagRelationship(tag1, tag2 string, relType RelationType, strength float64, now time.Time) (*CuratedTagRelationship, error) {
	if tag1 == "" || tag2 == "" {
		return nil, apperrors.NewInvalidArgumentError("tag1 and tag2 are required")
	}
	if tag1 == tag2 {
		return nil, apperrors.NewInvalidArgumentError("tag1 and tag2 must differ")
	}
	if !relType.Valid() {
		return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("unknown relationship type %q", relType))
	}
	if strength < 0 || strength > 1 {
		return nil, apperrors.NewInvalidArgumentError("strength must be between 0 and 1")
	}

	return &CuratedTagRelationship{
		Tag1:      tag1,
		Tag2:      tag2,
		Type:      relType,
		Strength:  strength,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpsertKey identifies the relationship for idempotent upserts: one row per
// (tag1, tag2, type), order-sensitive because asymmetric types are directed.
func (r *CuratedTagRelationship) UpsertKey() string {
	return r.Tag1 + keySeparator + r.Tag2 + keySeparator + string(r.Type)
}
