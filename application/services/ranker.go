package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

const (
	// DefaultMinStrength filters out edges too weak to be interesting.
	DefaultMinStrength = 0.1
	// DefaultRelatedLimit is the page size when the caller does not set one.
	DefaultRelatedLimit = 20
	// MaxRelatedLimit is the hard ceiling on a single related query.
	MaxRelatedLimit = 50
	// DefaultCoOccurringLimit is the page size for co-occurring tag queries.
	DefaultCoOccurringLimit = 20
	// MaxCoOccurringLimit is the ceiling for co-occurring tag queries.
	MaxCoOccurringLimit = 100
)

// RelatedQuery narrows a related-content query. Zero values mean "use the
// defaults"; the handler fills MinStrength explicitly so 0.0 can be asked
// for with min_strength=0.
type RelatedQuery struct {
	MinStrength float64
	Limit       int
	Enrich      bool
}

// RelatedContent is one ranked neighbor of the queried content item. The
// total and breakdown are decayed to the query time.
type RelatedContent struct {
	ContentID     string                         `json:"content_id"`
	TotalStrength float64                        `json:"total_strength"`
	Breakdown     relationship.StrengthBreakdown `json:"breakdown"`
	SignalCount   int64                          `json:"signal_count"`
	LastSeen      time.Time                      `json:"last_seen"`
	Summary       *ports.ContentSummary          `json:"summary,omitempty"`
}

// EdgeDetail is the inspection view of a single edge.
type EdgeDetail struct {
	Pair          relationship.CanonicalPair     `json:"pair"`
	TotalStrength float64                        `json:"total_strength"`
	Breakdown     relationship.StrengthBreakdown `json:"breakdown"`
	SignalCount   int64                          `json:"signal_count"`
	LastSeen      time.Time                      `json:"last_seen"`
	CreatedAt     time.Time                      `json:"created_at"`
}

// CoOccurringTag is one tag that has co-occurred with the queried tag.
type CoOccurringTag struct {
	TagID     string    `json:"tag_id"`
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ranker is the read path of the relationship graph: it loads every edge
// touching a content item, computes decayed totals at query time, and
// returns them filtered, sorted and truncated. It never writes.
type Ranker struct {
	edges    ports.EdgeRepository
	cooc     ports.CoOccurrenceRepository
	content  ports.ContentLookup
	cache    ports.Cache
	cacheTTL time.Duration
	scoring  relationship.ScoringConfig
	clock    Clock
	logger   *zap.Logger
}

// NewRanker creates the query service. content and cache may be nil; a nil
// cache disables result caching and a nil content lookup disables
// enrichment.
func NewRanker(
	edges ports.EdgeRepository,
	cooc ports.CoOccurrenceRepository,
	content ports.ContentLookup,
	cache ports.Cache,
	cacheTTL time.Duration,
	scoring relationship.ScoringConfig,
	clock Clock,
	logger *zap.Logger,
) *Ranker {
	return &Ranker{
		edges:    edges,
		cooc:     cooc,
		content:  content,
		cache:    cache,
		cacheTTL: cacheTTL,
		scoring:  scoring,
		clock:    clock,
		logger:   logger,
	}
}

// Related returns content related to contentID, strongest first. Items with
// a decayed total below MinStrength are dropped; the result never contains
// contentID itself and never exceeds the limit. No neighbors is a normal
// outcome and returns an empty slice, not an error.
func (r *Ranker) Related(ctx context.Context, contentID string, q RelatedQuery) ([]RelatedContent, error) {
	if contentID == "" {
		return nil, apperrors.NewInvalidArgumentError("content id is required")
	}
	if q.MinStrength < 0 {
		return nil, apperrors.NewInvalidArgumentError("min_strength must be non-negative")
	}
	limit := clampLimit(q.Limit, DefaultRelatedLimit, MaxRelatedLimit)

	if !q.Enrich {
		if cached, ok := r.fromCache(ctx, contentID, q.MinStrength, limit); ok {
			return cached, nil
		}
	}

	edges, err := r.edges.ListByMember(ctx, contentID)
	if err != nil {
		return nil, err
	}

	now := r.clock()
	results := make([]RelatedContent, 0, len(edges))
	for _, edge := range edges {
		breakdown := edge.BreakdownAt(r.scoring, now)
		total := breakdown.Total()
		if total < q.MinStrength {
			continue
		}
		results = append(results, RelatedContent{
			ContentID:     edge.Pair.Other(contentID),
			TotalStrength: total,
			Breakdown:     breakdown,
			SignalCount:   edge.SignalCount,
			LastSeen:      edge.LastSeen,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalStrength != results[j].TotalStrength {
			return results[i].TotalStrength > results[j].TotalStrength
		}
		if results[i].SignalCount != results[j].SignalCount {
			return results[i].SignalCount > results[j].SignalCount
		}
		return results[i].LastSeen.After(results[j].LastSeen)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	if q.Enrich {
		r.enrich(ctx, results)
	} else {
		r.toCache(ctx, contentID, q.MinStrength, limit, results)
	}

	return results, nil
}

// Edge returns the full state of the edge between two content items, or
// NotFound when no signal has ever connected them.
func (r *Ranker) Edge(ctx context.Context, idA, idB string) (*EdgeDetail, error) {
	pair, err := relationship.Canonicalize(idA, idB)
	if err != nil {
		return nil, err
	}

	edge, err := r.edges.Get(ctx, pair)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("edge between %s and %s", pair.First, pair.Second))
	}

	now := r.clock()
	breakdown := edge.BreakdownAt(r.scoring, now)
	return &EdgeDetail{
		Pair:          edge.Pair,
		TotalStrength: breakdown.Total(),
		Breakdown:     breakdown,
		SignalCount:   edge.SignalCount,
		LastSeen:      edge.LastSeen,
		CreatedAt:     edge.CreatedAt,
	}, nil
}

// CoOccurring returns the tags that have co-occurred with tagID, highest
// count first. An unknown tag returns an empty slice.
func (r *Ranker) CoOccurring(ctx context.Context, tagID string, limit int) ([]CoOccurringTag, error) {
	if tagID == "" {
		return nil, apperrors.NewInvalidArgumentError("tag id is required")
	}
	limit = clampLimit(limit, DefaultCoOccurringLimit, MaxCoOccurringLimit)

	pairs, err := r.cooc.ListByTag(ctx, tagID)
	if err != nil {
		return nil, err
	}

	results := make([]CoOccurringTag, 0, len(pairs))
	for _, p := range pairs {
		results = append(results, CoOccurringTag{
			TagID:     p.Pair.Other(tagID),
			Count:     p.Count,
			UpdatedAt: p.UpdatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].TagID < results[j].TagID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// enrich attaches content summaries in place. Lookup failures degrade to
// unenriched results rather than failing the query.
func (r *Ranker) enrich(ctx context.Context, results []RelatedContent) {
	if r.content == nil || len(results) == 0 {
		return
	}
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ContentID
	}
	summaries, err := r.content.Lookup(ctx, ids)
	if err != nil {
		r.logger.Warn("content enrichment failed", zap.Error(err))
		return
	}
	for i := range results {
		if s, ok := summaries[results[i].ContentID]; ok {
			summary := s
			results[i].Summary = &summary
		}
	}
}

func (r *Ranker) fromCache(ctx context.Context, contentID string, minStrength float64, limit int) ([]RelatedContent, bool) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return nil, false
	}
	v, ok := r.cache.Get(ctx, relatedCacheKey(contentID, minStrength, limit))
	if !ok {
		return nil, false
	}
	results, ok := v.([]RelatedContent)
	return results, ok
}

func (r *Ranker) toCache(ctx context.Context, contentID string, minStrength float64, limit int, results []RelatedContent) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	r.cache.Set(ctx, relatedCacheKey(contentID, minStrength, limit), results, r.cacheTTL)
}

func relatedCacheKey(contentID string, minStrength float64, limit int) string {
	return fmt.Sprintf("related#%s#%.4f#%d", contentID, minStrength, limit)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
