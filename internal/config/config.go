// Package config defines the configuration structures for the granite
// platform. No I/O or parsing logic lives here, only plain data types and
// validation; loading is in loader.go.
package config

import (
	"fmt"
	"time"

	"github.com/granite-grc/granite/internal/application/scans"
	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/intelligence/embedding"
)

// Version is the build version stamped at release time.
var Version = "dev"

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// DSN renders the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection parameters for the embedding cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	VectorTTL    time.Duration `mapstructure:"vector_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the risk-event stream parameters.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MinBytes     int           `mapstructure:"min_bytes"`
	MaxBytes     int           `mapstructure:"max_bytes"`
}

// MilvusConfig holds the optional ANN vector-store parameters. When Enabled
// is false the engine uses the in-process linear index, which is the
// specified behaviour for corpora in the thousands of rows.
type MilvusConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Addr           string `mapstructure:"addr"`
	CollectionName string `mapstructure:"collection_name"`
	IndexType      string `mapstructure:"index_type"`
	NProbe         int    `mapstructure:"nprobe"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "http" or "openai".
	Provider string                 `mapstructure:"provider"`
	HTTP     embedding.HTTPConfig   `mapstructure:"http"`
	OpenAI   embedding.OpenAIConfig `mapstructure:"openai"`
	// CacheEnabled wraps the provider with the redis vector cache.
	CacheEnabled bool `mapstructure:"cache_enabled"`
}

// ScoringConfig carries the level banding policy.
type ScoringConfig struct {
	Levels risk.LevelPolicy `mapstructure:"levels"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Config is the root configuration for every granite binary.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       logging.Config  `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Scan      scans.Config    `mapstructure:"scan"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Validate rejects configurations no binary could run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if err := c.Scoring.Levels.Validate(); err != nil {
		return fmt.Errorf("config: scoring.levels: %w", err)
	}
	switch c.Embedding.Provider {
	case "http", "openai":
	default:
		return fmt.Errorf("config: embedding.provider %q must be \"http\" or \"openai\"", c.Embedding.Provider)
	}
	if c.Milvus.Enabled && c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required when milvus is enabled")
	}
	return nil
}
