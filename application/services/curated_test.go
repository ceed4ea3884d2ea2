package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

func newCurator(t *testing.T, env *testEnv, clock Clock) *Curator {
	t.Helper()
	return NewCurator(env.curated, clock, zap.NewNop())
}

func TestCuratorUpsertIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	curator := newCurator(t, env, fixedClock(now))
	ctx := context.Background()

	first, err := curator.Upsert(ctx, UpsertCuratedInput{
		Tag1: "blender", Tag2: "sculpting",
		Type: relationship.RelationToolOf, Strength: 0.6,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := curator.Upsert(ctx, UpsertCuratedInput{
		Tag1: "blender", Tag2: "sculpting",
		Type: relationship.RelationToolOf, Strength: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 0.9, second.Strength)
}

func TestCuratorUpsertValidation(t *testing.T) {
	now := time.Now().UTC()
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	curator := newCurator(t, env, fixedClock(now))
	ctx := context.Background()

	_, err := curator.Upsert(ctx, UpsertCuratedInput{
		Tag1: "x", Tag2: "x", Type: relationship.RelationRelated, Strength: 0.5,
	})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = curator.Upsert(ctx, UpsertCuratedInput{
		Tag1: "x", Tag2: "y", Type: relationship.RelationType("rival_of"), Strength: 0.5,
	})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = curator.Upsert(ctx, UpsertCuratedInput{
		Tag1: "x", Tag2: "y", Type: relationship.RelationRelated, Strength: 1.5,
	})
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestCuratorDeleteUnknownIsNotFound(t *testing.T) {
	now := time.Now().UTC()
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	curator := newCurator(t, env, fixedClock(now))
	ctx := context.Background()

	err := curator.Delete(ctx, "no-such-id")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "curated relationship no-such-id not found", apperrors.GetAppError(err).Message)

	rel, err := curator.Upsert(ctx, UpsertCuratedInput{
		Tag1: "a", Tag2: "b", Type: relationship.RelationRelated, Strength: 0.5,
	})
	require.NoError(t, err)

	require.NoError(t, curator.Delete(ctx, rel.ID))
	// Second delete finds nothing.
	err = curator.Delete(ctx, rel.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCuratorListValidatesFilter(t *testing.T) {
	now := time.Now().UTC()
	env := newTestEnv(t, fixedClock(now), relationship.DefaultScoringConfig())
	curator := newCurator(t, env, fixedClock(now))
	ctx := context.Background()

	_, err := curator.List(ctx, ports.CuratedTagFilter{Type: relationship.RelationType("bogus")})
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = curator.List(ctx, ports.CuratedTagFilter{MinStrength: 2})
	assert.True(t, apperrors.IsInvalidArgument(err))

	rels, err := curator.List(ctx, ports.CuratedTagFilter{})
	require.NoError(t, err)
	assert.Empty(t, rels)
}
