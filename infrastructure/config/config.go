package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Storage configuration
	StoreBackend string
	BadgerPath   string

	// AWS configuration (dynamodb backend)
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - lookups by first pair member, signal time, row ID
	GSI2IndexName string // GSI2 - lookups by second pair member
	EventBusName  string

	// Content service (result enrichment)
	ContentServiceURL string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Scoring
	HalfLifeDays     float64
	NavigationWeight float64
	SearchWeight     float64
	ExplicitWeight   float64
	StrengthCap      float64

	// Query caching
	RelatedCacheTTL time.Duration

	// Feature flags
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	defaults := relationship.DefaultScoringConfig()

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		StoreBackend: getEnv("STORE_BACKEND", BackendBadger),
		BadgerPath:   getEnv("BADGER_PATH", "./data/relate"),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "relate")),
		IndexName:     getEnv("INDEX_NAME", "GSI1"),
		GSI2IndexName: getEnv("GSI2_INDEX_NAME", "GSI2"),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),

		ContentServiceURL: getEnv("CONTENT_SERVICE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "fivethirtynews-relate"),

		HalfLifeDays:     getEnvFloat("HALF_LIFE_DAYS", defaults.HalfLife.Hours()/24),
		NavigationWeight: getEnvFloat("NAVIGATION_WEIGHT", defaults.NavigationWeight),
		SearchWeight:     getEnvFloat("SEARCH_WEIGHT", defaults.SearchWeight),
		ExplicitWeight:   getEnvFloat("EXPLICIT_WEIGHT", defaults.ExplicitWeight),
		StrengthCap:      getEnvFloat("STRENGTH_CAP", defaults.StrengthCap),

		RelatedCacheTTL: time.Duration(getEnvInt("RELATED_CACHE_TTL_SECONDS", 30)) * time.Second,

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendBadger, BackendDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.StoreBackend == BackendBadger && c.BadgerPath == "" {
		return fmt.Errorf("BADGER_PATH is required for the badger backend")
	}
	if c.StoreBackend == BackendDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
	}

	if c.HalfLifeDays < 0 {
		return fmt.Errorf("HALF_LIFE_DAYS must be non-negative")
	}
	for name, w := range map[string]float64{
		"NAVIGATION_WEIGHT": c.NavigationWeight,
		"SEARCH_WEIGHT":     c.SearchWeight,
		"EXPLICIT_WEIGHT":   c.ExplicitWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}

	return nil
}

// ScoringConfig materializes the decay and weighting parameters.
func (c *Config) ScoringConfig() relationship.ScoringConfig {
	return relationship.ScoringConfig{
		HalfLife:         time.Duration(c.HalfLifeDays * 24 * float64(time.Hour)),
		NavigationWeight: c.NavigationWeight,
		SearchWeight:     c.SearchWeight,
		ExplicitWeight:   c.ExplicitWeight,
		StrengthCap:      c.StrengthCap,
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
