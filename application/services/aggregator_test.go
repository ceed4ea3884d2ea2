package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/persistence/badgerdb"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
	"github.com/pmacom/fivethirtynews-relate/pkg/locks"
)

type testEnv struct {
	aggregator *Aggregator
	edges      *badgerdb.EdgeRepository
	signals    *badgerdb.SignalLog
	cooc       *badgerdb.CoOccurrenceRepository
	curated    *badgerdb.CuratedTagRepository
}

func newTestEnv(t *testing.T, clock Clock, cfg relationship.ScoringConfig) *testEnv {
	t.Helper()
	store, err := badgerdb.Open(badgerdb.Config{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	edges := badgerdb.NewEdgeRepository(store)
	signals := badgerdb.NewSignalLog(store)
	cooc := badgerdb.NewCoOccurrenceRepository(store)
	curated := badgerdb.NewCuratedTagRepository(store)

	aggregator := NewAggregator(edges, signals, cooc, nil, locks.NewKeyMutex(locks.DefaultShards), cfg, clock, zap.NewNop())

	return &testEnv{
		aggregator: aggregator,
		edges:      edges,
		signals:    signals,
		cooc:       cooc,
		curated:    curated,
	}
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func TestRecordSignalCreatesEdgeAndAuditEntry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	ctx := context.Background()

	id1, err := env.aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "article-1", TargetID: "article-2",
		Type: relationship.SignalExplicit, Weight: 1.0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	// Same observation again is a new audit row, not a replay.
	id2, err := env.aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "article-2", TargetID: "article-1",
		Type: relationship.SignalExplicit, Weight: 1.0,
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	pair, err := relationship.Canonicalize("article-1", "article-2")
	require.NoError(t, err)
	edge, err := env.edges.Get(ctx, pair)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, int64(2), edge.SignalCount)
	assert.InDelta(t, 2.0, edge.ExplicitStrength, 1e-9)

	events, err := env.signals.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRecordSignalRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, fixedClock(time.Now()), relationship.DefaultScoringConfig())
	ctx := context.Background()

	_, err := env.aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "a", TargetID: "a",
		Type: relationship.SignalNavigation, Weight: 0.5,
	})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = env.aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "a", TargetID: "b",
		Type: relationship.SignalType("like"), Weight: 0.5,
	})
	assert.True(t, apperrors.IsInvalidArgument(err))

	events, err := env.signals.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events, "rejected signals must not reach the audit log")
}

func TestRecordSignalClampsOverRangeWeight(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	ctx := context.Background()

	_, err := env.aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "a", TargetID: "b",
		Type: relationship.SignalSearch, Weight: 1.5,
	})
	require.NoError(t, err)

	_, err = env.aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "c", TargetID: "d",
		Type: relationship.SignalSearch, Weight: 1.0,
	})
	require.NoError(t, err)

	pairAB, _ := relationship.Canonicalize("a", "b")
	pairCD, _ := relationship.Canonicalize("c", "d")
	edgeAB, err := env.edges.Get(ctx, pairAB)
	require.NoError(t, err)
	edgeCD, err := env.edges.Get(ctx, pairCD)
	require.NoError(t, err)

	assert.Equal(t, edgeCD.SearchStrength, edgeAB.SearchStrength)
}

func TestRecordTagCoOccurrenceCountsAllPairs(t *testing.T) {
	now := time.Now().UTC()
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	ctx := context.Background()

	// Duplicates collapse before pairing.
	updated, err := env.aggregator.RecordTagCoOccurrence(ctx, []string{"blender", "sculpting", "tutorial", "blender"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	pair, _ := relationship.Canonicalize("blender", "sculpting")
	record, err := env.cooc.Get(ctx, pair)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(1), record.Count)

	_, err = env.aggregator.RecordTagCoOccurrence(ctx, []string{"solo", "solo"})
	assert.True(t, apperrors.IsInvalidArgument(err))
}

// conflictingEdgeRepo fails Put with a transient conflict the first
// `failures` times, then delegates.
type conflictingEdgeRepo struct {
	ports.EdgeRepository
	failures int
	puts     int
}

func (r *conflictingEdgeRepo) Put(ctx context.Context, edge *relationship.RelationshipEdge) error {
	r.puts++
	if r.failures > 0 {
		r.failures--
		return apperrors.NewUnavailableError("edge write conflicted, retry")
	}
	return r.EdgeRepository.Put(ctx, edge)
}

func TestRecordSignalRetriesConflictedWriteOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	ctx := context.Background()

	flaky := &conflictingEdgeRepo{EdgeRepository: env.edges, failures: 1}
	aggregator := NewAggregator(flaky, env.signals, env.cooc, nil,
		locks.NewKeyMutex(locks.DefaultShards), relationship.DefaultScoringConfig(), fixedClock(now), zap.NewNop())

	id, err := aggregator.RecordSignal(ctx, RecordSignalInput{
		SourceID: "a", TargetID: "b",
		Type: relationship.SignalExplicit, Weight: 1.0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 2, flaky.puts)

	pair, _ := relationship.Canonicalize("a", "b")
	edge, err := env.edges.Get(ctx, pair)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, int64(1), edge.SignalCount)
}

func TestRecordSignalSurfacesRepeatedConflict(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())

	flaky := &conflictingEdgeRepo{EdgeRepository: env.edges, failures: 2}
	aggregator := NewAggregator(flaky, env.signals, env.cooc, nil,
		locks.NewKeyMutex(locks.DefaultShards), relationship.DefaultScoringConfig(), fixedClock(now), zap.NewNop())

	_, err := aggregator.RecordSignal(context.Background(), RecordSignalInput{
		SourceID: "a", TargetID: "b",
		Type: relationship.SignalExplicit, Weight: 1.0,
	})
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, 2, flaky.puts, "exactly one retry before giving up")
}

func TestRecentSignalsClampsItsOwnLimit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.aggregator.RecordSignal(ctx, RecordSignalInput{
			SourceID: "a", TargetID: "b",
			Type: relationship.SignalNavigation, Weight: 0.5,
		})
		require.NoError(t, err)
	}

	// Zero and negative limits fall back to the listing default.
	events, err := env.aggregator.RecentSignals(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = env.aggregator.RecentSignals(ctx, -5)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = env.aggregator.RecentSignals(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	assert.Equal(t, DefaultSignalListLimit, clampLimit(0, DefaultSignalListLimit, MaxSignalListLimit))
	assert.Equal(t, MaxSignalListLimit, clampLimit(1000, DefaultSignalListLimit, MaxSignalListLimit))
}

func TestConcurrentSignalsOnSameEdgeLoseNothing(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := env.aggregator.RecordSignal(ctx, RecordSignalInput{
				SourceID: "hot-a", TargetID: "hot-b",
				Type: relationship.SignalNavigation, Weight: 0.05,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	pair, _ := relationship.Canonicalize("hot-a", "hot-b")
	edge, err := env.edges.Get(ctx, pair)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, int64(workers), edge.SignalCount)
	assert.InDelta(t, 5.0, edge.NavigationStrength, 1e-6)
}
