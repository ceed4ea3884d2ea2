package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
	"github.com/pmacom/fivethirtynews-relate/pkg/locks"
)

// Clock supplies the current time. Injected so tests can pin it.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() Clock {
	return time.Now
}

// EventSignalRecorded is published after a signal is merged into its edge.
const EventSignalRecorded = "relationship.signal.recorded"

const (
	// DefaultSignalListLimit is the page size of the signal audit listing.
	DefaultSignalListLimit = 50
	// MaxSignalListLimit caps a single audit listing request.
	MaxSignalListLimit = 200
)

// RecordSignalInput carries one behavioral signal from the ingestion API.
type RecordSignalInput struct {
	SourceID string
	TargetID string
	Type     relationship.SignalType
	Weight   float64
	Context  map[string]interface{}
	UserID   string
}

// Aggregator is the concurrency-safe write path of the relationship graph:
// it appends the raw signal to the audit log, then decays, merges and
// persists the aggregated edge under an exclusive section for that edge's
// canonical key only. Updates to different edges never block each other.
type Aggregator struct {
	edges   ports.EdgeRepository
	signals ports.SignalLog
	cooc    ports.CoOccurrenceRepository
	events  ports.EventBus
	locks   *locks.KeyMutex
	scoring relationship.ScoringConfig
	clock   Clock
	logger  *zap.Logger
}

// NewAggregator creates the aggregation service.
func NewAggregator(
	edges ports.EdgeRepository,
	signals ports.SignalLog,
	cooc ports.CoOccurrenceRepository,
	events ports.EventBus,
	keyLocks *locks.KeyMutex,
	scoring relationship.ScoringConfig,
	clock Clock,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		edges:   edges,
		signals: signals,
		cooc:    cooc,
		events:  events,
		locks:   keyLocks,
		scoring: scoring,
		clock:   clock,
		logger:  logger,
	}
}

// RecordSignal validates the signal, appends it to the audit log, then folds
// it into the pair's edge. The audit append happens before the edge update
// so evidence is never lost even if the merge fails. Returns the new
// signal's ID.
//
// Callers treat this as fire-and-forget, but the engine always surfaces a
// typed error so "recorded" and "dropped" stay distinguishable.
func (a *Aggregator) RecordSignal(ctx context.Context, in RecordSignalInput) (string, error) {
	event, err := relationship.NewSignalEvent(in.SourceID, in.TargetID, in.Type, in.Weight, in.Context, in.UserID, a.clock())
	if err != nil {
		return "", err
	}

	pair, err := event.Pair()
	if err != nil {
		return "", err
	}

	if err := a.signals.Append(ctx, event); err != nil {
		return "", err
	}

	if err := a.mergeSignal(ctx, pair, event); err != nil {
		return "", err
	}

	a.publish(ctx, ports.Event{
		Type:       EventSignalRecorded,
		Detail:     event,
		OccurredAt: event.OccurredAt,
	})

	a.logger.Debug("signal recorded",
		zap.String("signalID", event.ID),
		zap.String("edgeKey", pair.Key()),
		zap.String("signalType", string(event.Type)),
		zap.Float64("weight", event.Weight),
	)

	return event.ID, nil
}

// mergeSignal runs the read-decay-merge-write sequence for one edge. The
// sequence is not commutative under interleaving, so the canonical key's
// lock is held across all of it (lost-update protection). The lock only
// covers this process; a conditional write in the store can still lose to a
// writer elsewhere, so a conflicted write is re-read and retried once before
// the failure surfaces.
func (a *Aggregator) mergeSignal(ctx context.Context, pair relationship.CanonicalPair, event *relationship.SignalEvent) error {
	unlock := a.locks.Lock(pair.Key())
	defer unlock()

	if err := apperrors.FromContext(ctx, "record signal"); err != nil {
		return err
	}

	err := a.applyMerge(ctx, pair, event)
	if err != nil && apperrors.IsUnavailable(err) {
		a.logger.Debug("edge merge conflicted, retrying once",
			zap.String("edgeKey", pair.Key()),
		)
		err = a.applyMerge(ctx, pair, event)
	}
	return err
}

func (a *Aggregator) applyMerge(ctx context.Context, pair relationship.CanonicalPair, event *relationship.SignalEvent) error {
	edge, err := a.edges.Get(ctx, pair)
	if err != nil {
		return err
	}
	now := a.clock()
	if edge == nil {
		edge = relationship.NewRelationshipEdge(pair, now)
	}

	edge.Merge(event.Type, event.Weight, a.scoring, now)

	return a.edges.Put(ctx, edge)
}

// RecordTagCoOccurrence increments the co-occurrence count of every
// unordered pair among the distinct input tags. Duplicate IDs are
// deduplicated first; fewer than two distinct tags is an error. Returns the
// number of pairs updated, n*(n-1)/2 for n distinct tags.
func (a *Aggregator) RecordTagCoOccurrence(ctx context.Context, tagIDs []string) (int, error) {
	distinct := dedupeTags(tagIDs)
	if len(distinct) < 2 {
		return 0, apperrors.NewInvalidArgumentError("at least 2 distinct tag ids are required")
	}

	updated := 0
	for i := 0; i < len(distinct); i++ {
		for j := i + 1; j < len(distinct); j++ {
			pair, err := relationship.Canonicalize(distinct[i], distinct[j])
			if err != nil {
				return updated, err
			}
			if err := a.incrementPair(ctx, pair); err != nil {
				return updated, err
			}
			updated++
		}
	}

	a.logger.Debug("tag co-occurrence recorded",
		zap.Int("tags", len(distinct)),
		zap.Int("pairsUpdated", updated),
	)

	return updated, nil
}

// RecentSignals returns up to limit audit entries, newest first.
func (a *Aggregator) RecentSignals(ctx context.Context, limit int) ([]*relationship.SignalEvent, error) {
	limit = clampLimit(limit, DefaultSignalListLimit, MaxSignalListLimit)
	return a.signals.ListRecent(ctx, limit)
}

// incrementPair applies the same per-pair-key locking discipline as edge
// updates. Pairs are locked one at a time, never nested, so shard collisions
// cannot deadlock.
func (a *Aggregator) incrementPair(ctx context.Context, pair relationship.CanonicalPair) error {
	unlock := a.locks.Lock("cooc#" + pair.Key())
	defer unlock()

	if err := apperrors.FromContext(ctx, "record co-occurrence"); err != nil {
		return err
	}

	return a.cooc.Increment(ctx, pair, a.clock())
}

func (a *Aggregator) publish(ctx context.Context, event ports.Event) {
	if a.events == nil {
		return
	}
	if err := a.events.Publish(ctx, event); err != nil {
		// Fan-out is best effort; the signal is already durable.
		a.logger.Warn("failed to publish event",
			zap.String("eventType", event.Type),
			zap.Error(err),
		)
	}
}

// dedupeTags returns the distinct tag IDs in sorted order, dropping blanks.
// Sorting makes pair enumeration deterministic.
func dedupeTags(tagIDs []string) []string {
	seen := make(map[string]struct{}, len(tagIDs))
	distinct := make([]string, 0, len(tagIDs))
	for _, id := range tagIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	sort.Strings(distinct)
	return distinct
}
