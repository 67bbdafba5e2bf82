package config

import (
	"time"

	"github.com/granite-grc/granite/internal/application/scans"
	"github.com/granite-grc/granite/internal/domain/risk"
)

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost        = "localhost"
	DefaultDBPort        = 5432
	DefaultDBName        = "granite"
	DefaultDBMaxConns    = 20
	DefaultMigrationPath = "file://migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "granite"
	DefaultVectorTTL      = 24 * time.Hour

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaTopic   = "granite.risk-events"
	DefaultKafkaGroupID = "granite-worker"

	DefaultMilvusAddr       = "localhost:19530"
	DefaultMilvusCollection = "risk_vectors"

	DefaultEmbeddingProvider  = "http"
	DefaultEmbeddingURL       = "http://localhost:8000"
	DefaultEmbeddingDimension = 384

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"
)

// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins. It must run after unmarshalling and before
// Validate so optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.VectorTTL == 0 {
		cfg.Redis.VectorTTL = DefaultVectorTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.DialTimeout == 0 {
		cfg.Kafka.DialTimeout = 10 * time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20
	}

	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.CollectionName == "" {
		cfg.Milvus.CollectionName = DefaultMilvusCollection
	}
	if cfg.Milvus.IndexType == "" {
		cfg.Milvus.IndexType = "IVF_FLAT"
	}
	if cfg.Milvus.NProbe == 0 {
		cfg.Milvus.NProbe = 16
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultEmbeddingProvider
	}
	if cfg.Embedding.HTTP.BaseURL == "" {
		cfg.Embedding.HTTP.BaseURL = DefaultEmbeddingURL
	}
	if cfg.Embedding.HTTP.Dimension == 0 {
		cfg.Embedding.HTTP.Dimension = DefaultEmbeddingDimension
	}
	if cfg.Embedding.HTTP.Timeout == 0 {
		cfg.Embedding.HTTP.Timeout = 30 * time.Second
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.OpenAI.Dimension == 0 {
		cfg.Embedding.OpenAI.Dimension = 1536
	}

	if cfg.Scoring.Levels == (risk.LevelPolicy{}) {
		cfg.Scoring.Levels = risk.DefaultLevelPolicy()
	}

	applyScanDefaults(&cfg.Scan)

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

func applyScanDefaults(sc *scans.Config) {
	def := scans.DefaultConfig()
	if sc.DefaultLimit == 0 {
		sc.DefaultLimit = def.DefaultLimit
	}
	if sc.PresaveThreshold == 0 {
		sc.PresaveThreshold = def.PresaveThreshold
	}
	if sc.MinTitleLength == 0 {
		sc.MinTitleLength = def.MinTitleLength
	}
	if sc.ProgressTick == 0 {
		sc.ProgressTick = def.ProgressTick
	}
	if sc.EstimatedItemCost == 0 {
		sc.EstimatedItemCost = def.EstimatedItemCost
	}
	if sc.ProgressCap == 0 {
		sc.ProgressCap = def.ProgressCap
	}
	if sc.CompletionHold == 0 {
		sc.CompletionHold = def.CompletionHold
	}
	if sc.RetentionTTL == 0 {
		sc.RetentionTTL = def.RetentionTTL
	}
}
