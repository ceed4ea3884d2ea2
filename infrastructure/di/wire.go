//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/services"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/config"
	"github.com/pmacom/fivethirtynews-relate/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Aggregator   *services.Aggregator
	Ranker       *services.Ranker
	Curator      *services.Curator
	JWTValidator *auth.JWTValidator
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideClock,
	ProvideScoringConfig,
	ProvideKeyMutex,
	ProvideStorage,
	ProvideEdgeRepository,
	ProvideSignalLog,
	ProvideCoOccurrenceRepository,
	ProvideCuratedTagRepository,
	ProvideEventBus,
	ProvideContentLookup,
	ProvideCache,
	ProvideAggregator,
	ProvideRanker,
	ProvideCurator,
	ProvideJWTValidator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
