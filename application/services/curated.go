package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

const (
	// DefaultCuratedLimit is the page size for curated relationship listings.
	DefaultCuratedLimit = 100
	// MaxCuratedLimit caps a single curated listing.
	MaxCuratedLimit = 500
)

// UpsertCuratedInput carries one administrator-authored tag relationship.
type UpsertCuratedInput struct {
	Tag1     string
	Tag2     string
	Type     relationship.RelationType
	Strength float64
}

// Curator manages the curated tag-relationship table. Curated rows live
// beside the behavioral graph and are never decayed; direction matters for
// asymmetric relation types, so tags are stored as submitted.
type Curator struct {
	curated ports.CuratedTagRepository
	clock   Clock
	logger  *zap.Logger
}

// NewCurator creates the curation service.
func NewCurator(curated ports.CuratedTagRepository, clock Clock, logger *zap.Logger) *Curator {
	return &Curator{curated: curated, clock: clock, logger: logger}
}

// Upsert creates or replaces the relationship identified by
// (tag1, tag2, type). Repeating the same upsert only moves strength and
// updated_at; the row's ID is stable.
func (c *Curator) Upsert(ctx context.Context, in UpsertCuratedInput) (*relationship.CuratedTagRelationship, error) {
	rel, err := relationship.NewCuratedTagRelationship(in.Tag1, in.Tag2, in.Type, in.Strength, c.clock())
	if err != nil {
		return nil, err
	}

	stored, err := c.curated.Upsert(ctx, rel)
	if err != nil {
		return nil, err
	}

	c.logger.Info("curated relationship upserted",
		zap.String("relationshipID", stored.ID),
		zap.String("key", stored.UpsertKey()),
		zap.Float64("strength", stored.Strength),
	)
	return stored, nil
}

// Delete removes a curated relationship by ID. Deleting an unknown ID is
// NotFound so clients can distinguish "gone" from "never existed".
func (c *Curator) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewInvalidArgumentError("relationship id is required")
	}

	existing, err := c.curated.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("curated relationship %s", id))
	}

	if err := c.curated.Delete(ctx, id); err != nil {
		return err
	}

	c.logger.Info("curated relationship deleted", zap.String("relationshipID", id))
	return nil
}

// List returns curated relationships matching the filter, strongest first.
func (c *Curator) List(ctx context.Context, filter ports.CuratedTagFilter) ([]*relationship.CuratedTagRelationship, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("unknown relation type %q", filter.Type))
	}
	if filter.MinStrength < 0 || filter.MinStrength > 1 {
		return nil, apperrors.NewInvalidArgumentError("min_strength must be within [0, 1]")
	}
	filter.Limit = clampLimit(filter.Limit, DefaultCuratedLimit, MaxCuratedLimit)

	return c.curated.List(ctx, filter)
}
