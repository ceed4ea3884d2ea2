package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/application/services"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/acl"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/config"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/messaging/eventbridge"
	"github.com/pmacom/fivethirtynews-relate/infrastructure/persistence/badgerdb"
	dynamostore "github.com/pmacom/fivethirtynews-relate/infrastructure/persistence/dynamodb"
	"github.com/pmacom/fivethirtynews-relate/pkg/auth"
	"github.com/pmacom/fivethirtynews-relate/pkg/locks"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

// ProvideClock provides the production clock
func ProvideClock() services.Clock {
	return services.SystemClock()
}

// ProvideScoringConfig materializes decay parameters from configuration
func ProvideScoringConfig(cfg *config.Config) relationship.ScoringConfig {
	return cfg.ScoringConfig()
}

// ProvideKeyMutex creates the per-key lock set shared by the write path
func ProvideKeyMutex() *locks.KeyMutex {
	return locks.NewKeyMutex(locks.DefaultShards)
}

// Storage bundles one backend's repository implementations.
type Storage struct {
	Edges   ports.EdgeRepository
	Signals ports.SignalLog
	CoOcc   ports.CoOccurrenceRepository
	Curated ports.CuratedTagRepository
}

// ProvideStorage selects the backend from configuration. The returned
// cleanup closes the embedded store; for DynamoDB it is a no-op.
func ProvideStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendBadger:
		store, err := badgerdb.Open(badgerdb.Config{Path: cfg.BadgerPath}, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close badger store", zap.Error(err))
			}
		}
		return &Storage{
			Edges:   badgerdb.NewEdgeRepository(store),
			Signals: badgerdb.NewSignalLog(store),
			CoOcc:   badgerdb.NewCoOccurrenceRepository(store),
			Curated: badgerdb.NewCuratedTagRepository(store),
		}, cleanup, nil

	case config.BackendDynamoDB:
		client, err := dynamostore.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		tables := dynamostore.Tables{
			TableName: cfg.DynamoDBTable,
			GSI1Name:  cfg.IndexName,
			GSI2Name:  cfg.GSI2IndexName,
		}
		return &Storage{
			Edges:   dynamostore.NewEdgeRepository(client, tables, logger),
			Signals: dynamostore.NewSignalLog(client, tables, logger),
			CoOcc:   dynamostore.NewCoOccurrenceRepository(client, tables, logger),
			Curated: dynamostore.NewCuratedTagRepository(client, tables, logger),
		}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// ProvideEdgeRepository extracts the edge repository from storage
func ProvideEdgeRepository(s *Storage) ports.EdgeRepository { return s.Edges }

// ProvideSignalLog extracts the signal log from storage
func ProvideSignalLog(s *Storage) ports.SignalLog { return s.Signals }

// ProvideCoOccurrenceRepository extracts the co-occurrence repository from storage
func ProvideCoOccurrenceRepository(s *Storage) ports.CoOccurrenceRepository { return s.CoOcc }

// ProvideCuratedTagRepository extracts the curated repository from storage
func ProvideCuratedTagRepository(s *Storage) ports.CuratedTagRepository { return s.Curated }

// ProvideEventBus creates the event publisher, or a noop when no bus is
// configured.
func ProvideEventBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.EventBus, error) {
	if cfg.EventBusName == "" {
		return eventbridge.NoopPublisher{}, nil
	}
	client, err := eventbridge.NewClient(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger), nil
}

// ProvideContentLookup creates the content-service adapter, or nil when no
// service is configured; a nil lookup disables enrichment.
func ProvideContentLookup(cfg *config.Config, logger *zap.Logger) ports.ContentLookup {
	if cfg.ContentServiceURL == "" {
		return nil
	}
	return acl.NewHTTPContentLookup(cfg.ContentServiceURL, logger)
}

// ProvideCache creates the query result cache
func ProvideCache(clock services.Clock) ports.Cache {
	return NewInMemoryCache(clock)
}

// ProvideAggregator creates the signal write service
func ProvideAggregator(
	edges ports.EdgeRepository,
	signals ports.SignalLog,
	cooc ports.CoOccurrenceRepository,
	events ports.EventBus,
	keyLocks *locks.KeyMutex,
	scoring relationship.ScoringConfig,
	clock services.Clock,
	logger *zap.Logger,
) *services.Aggregator {
	return services.NewAggregator(edges, signals, cooc, events, keyLocks, scoring, clock, logger)
}

// ProvideRanker creates the query service
func ProvideRanker(
	edges ports.EdgeRepository,
	cooc ports.CoOccurrenceRepository,
	content ports.ContentLookup,
	cache ports.Cache,
	cfg *config.Config,
	scoring relationship.ScoringConfig,
	clock services.Clock,
	logger *zap.Logger,
) *services.Ranker {
	return services.NewRanker(edges, cooc, content, cache, cfg.RelatedCacheTTL, scoring, clock, logger)
}

// ProvideCurator creates the curation service
func ProvideCurator(curated ports.CuratedTagRepository, clock services.Clock, logger *zap.Logger) *services.Curator {
	return services.NewCurator(curated, clock, logger)
}

// ProvideJWTValidator creates the validator guarding admin routes, or nil
// when no secret is configured (development only).
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) *auth.JWTValidator {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, admin routes are unprotected")
		return nil
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
	if err != nil {
		logger.Error("failed to build JWT validator", zap.Error(err))
		return nil
	}
	return validator
}
