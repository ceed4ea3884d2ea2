// Package ports defines the interfaces between the application services and
// the infrastructure layer. Services depend on these, never on a concrete
// storage or messaging implementation.
package ports

import (
	"context"
	"time"

	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
)

// EdgeRepository is keyed storage for aggregated content edges.
//
// Get returns (nil, nil) when no edge exists for the pair: a missing edge is
// a normal state, not an error. ListByMember must resolve edges by either
// member of the canonical pair, not only by the canonical key.
type EdgeRepository interface {
	Get(ctx context.Context, pair relationship.CanonicalPair) (*relationship.RelationshipEdge, error)
	Put(ctx context.Context, edge *relationship.RelationshipEdge) error
	ListByMember(ctx context.Context, contentID string) ([]*relationship.RelationshipEdge, error)
}

// SignalLog is the append-only audit trail of raw signals. Entries are never
// mutated or deleted by the engine.
type SignalLog interface {
	Append(ctx context.Context, event *relationship.SignalEvent) error
	ListRecent(ctx context.Context, limit int) ([]*relationship.SignalEvent, error)
}

// CoOccurrenceRepository stores tag co-occurrence counts. Increment must be
// atomic per pair under the aggregator's per-key locking discipline.
type CoOccurrenceRepository interface {
	Increment(ctx context.Context, pair relationship.CanonicalPair, now time.Time) error
	Get(ctx context.Context, pair relationship.CanonicalPair) (*relationship.TagCoOccurrencePair, error)
	ListByTag(ctx context.Context, tagID string) ([]*relationship.TagCoOccurrencePair, error)
}

// CuratedTagFilter narrows a curated relationship listing.
type CuratedTagFilter struct {
	TagID       string
	Type        relationship.RelationType
	MinStrength float64
	Limit       int
}

// CuratedTagRepository stores administrator-authored tag relationships.
// Upsert is idempotent on (tag1, tag2, type) and returns the stored row.
type CuratedTagRepository interface {
	Upsert(ctx context.Context, rel *relationship.CuratedTagRelationship) (*relationship.CuratedTagRelationship, error)
	GetByID(ctx context.Context, id string) (*relationship.CuratedTagRelationship, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter CuratedTagFilter) ([]*relationship.CuratedTagRelationship, error)
}

// ContentSummary is the minimal projection of a content record used to
// enrich ranked results. The engine never stores these.
type ContentSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// ContentLookup resolves content IDs against the external content service.
// Enrichment is the collaborator's job; the engine stays ignorant of the
// content schema.
type ContentLookup interface {
	Lookup(ctx context.Context, ids []string) (map[string]ContentSummary, error)
}

// Event is a domain event published after a successful state change.
type Event struct {
	Type       string      `json:"type"`
	Detail     interface{} `json:"detail"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// EventBus publishes events for outer collaborators. Publishing is best
// effort: the aggregator logs failures and never fails a request over them.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
}

// Cache is an explicit TTL cache with an injected clock, replacing ad hoc
// module-level maps. Reads may be slightly stale by design.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
