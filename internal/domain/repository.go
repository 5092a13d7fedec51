package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// It stores the knowledge base and raw telemetry; diagnoses are never stored.
type Repository interface {
	// Knowledge base
	SaveSymptom(ctx context.Context, symptom *Symptom) error
	ListSymptoms(ctx context.Context) ([]*Symptom, error)
	SaveRule(ctx context.Context, position int, rule *Rule) error
	GetRule(ctx context.Context, ruleID string) (*Rule, error)
	ListRules(ctx context.Context) ([]*Rule, error)
	// SaveKnowledge writes a catalog and rule base atomically; rules keep
	// their slice order as position.
	SaveKnowledge(ctx context.Context, symptoms []Symptom, rules []Rule) error

	// Telemetry
	SaveReading(ctx context.Context, motorID string, reading *SensorReading) error
	ListReadings(ctx context.Context, motorID string, since time.Time, limit int) ([]*SensorReading, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `mapstructure:"postgresHost"`
	PostgresPort     int    `mapstructure:"postgresPort"`
	PostgresUser     string `mapstructure:"postgresUser"`
	PostgresPassword string `mapstructure:"postgresPassword"`
	PostgresDB       string `mapstructure:"postgresDb"`
	PostgresSSLMode  string `mapstructure:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}
