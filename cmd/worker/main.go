// Worker entry point: consumes risk lifecycle events and keeps the embedding
// cache and the ANN vector store synchronised with the register.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/granite-grc/granite/internal/application/indexer"
	"github.com/granite-grc/granite/internal/config"
	"github.com/granite-grc/granite/internal/infrastructure/database/redis"
	"github.com/granite-grc/granite/internal/infrastructure/messaging/kafka"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/prometheus"
	"github.com/granite-grc/granite/internal/infrastructure/search/milvus"
	"github.com/granite-grc/granite/internal/intelligence/embedding"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		var envErr error
		cfg, envErr = config.LoadFromEnv()
		if envErr != nil {
			fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	logger.Info("starting granite worker",
		logging.String("version", config.Version),
		logging.String("topic", cfg.Kafka.Topic),
		logging.String("group", cfg.Kafka.GroupID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("worker exited", logging.Err(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	collector := prometheus.NewCollector()

	embedder, rdb, err := buildEmbedder(ctx, cfg, logger, collector)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var vectors indexer.VectorStore
	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(ctx, milvus.Config{
			Addr:           cfg.Milvus.Addr,
			CollectionName: cfg.Milvus.CollectionName,
			Dimension:      embedder.Dimension(),
			NProbe:         cfg.Milvus.NProbe,
		}, logger)
		if err != nil {
			return err
		}
		defer milvusClient.Close()

		store := milvus.NewStore(milvusClient, logger)
		if err := store.EnsureCollection(ctx); err != nil {
			return err
		}
		vectors = store
	}

	ix := indexer.NewIndexer(indexer.Deps{
		Embedder: embedder,
		Vectors:  vectors,
		Logger:   logger,
	})

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: cfg.Kafka.MinBytes,
		MaxBytes: cfg.Kafka.MaxBytes,
	}, logger)
	defer consumer.Close()

	return consumer.Run(ctx, func(ctx context.Context, event *kafka.RiskEvent) error {
		switch event.Type {
		case kafka.EventRiskDeleted:
			return ix.RemoveRisk(ctx, event.RiskID)
		default:
			return ix.ReindexRisk(ctx, event.RiskID, event.Title, event.ThreatDescription, event.Description)
		}
	})
}

// buildEmbedder mirrors the api server's embedding pipeline so both
// processes hit the same cache keys.
func buildEmbedder(ctx context.Context, cfg *config.Config, logger logging.Logger, stats embedding.CacheStats) (embedding.Provider, *redis.Client, error) {
	var provider embedding.Provider
	var err error
	switch cfg.Embedding.Provider {
	case "openai":
		provider, err = embedding.NewOpenAIProvider(cfg.Embedding.OpenAI, logger)
	default:
		provider, err = embedding.NewHTTPProvider(cfg.Embedding.HTTP, logger)
	}
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Embedding.CacheEnabled {
		return provider, nil, nil
	}

	rdb, err := redis.NewClient(ctx, redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	cache := redis.NewVectorCache(rdb, cfg.Redis.KeyPrefix, cfg.Redis.VectorTTL)
	return embedding.NewCachedProvider(provider, cache, stats, logger), rdb, nil
}
