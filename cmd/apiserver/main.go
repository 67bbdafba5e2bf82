// API server entry point for the granite risk engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/granite-grc/granite/internal/application/assessment"
	"github.com/granite-grc/granite/internal/application/register"
	"github.com/granite-grc/granite/internal/application/scans"
	"github.com/granite-grc/granite/internal/config"
	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/database/postgres"
	"github.com/granite-grc/granite/internal/infrastructure/database/postgres/repositories"
	"github.com/granite-grc/granite/internal/infrastructure/database/redis"
	"github.com/granite-grc/granite/internal/infrastructure/messaging/kafka"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/prometheus"
	"github.com/granite-grc/granite/internal/infrastructure/search/milvus"
	"github.com/granite-grc/granite/internal/intelligence/embedding"
	httpserver "github.com/granite-grc/granite/internal/interfaces/http"
	"github.com/granite-grc/granite/internal/interfaces/http/handlers"
	"github.com/granite-grc/granite/internal/interfaces/http/middleware"
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
	logger.Info("starting granite api server",
		logging.String("version", config.Version),
		logging.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api server exited", logging.Err(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationPath); err != nil {
		return err
	}

	pg, err := postgres.NewConnection(ctx, postgres.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	risks := repositories.NewRiskRepository(pg.Pool(), logger)

	collector := prometheus.NewCollector()

	embedder, rdb, err := buildEmbedder(ctx, cfg, logger, collector)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var vectorSearch scans.VectorSearcher
	var milvusClient *milvus.Client
	if cfg.Milvus.Enabled {
		milvusClient, err = milvus.NewClient(ctx, milvus.Config{
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
		vectorSearch = store
	}

	calc, err := risk.NewCalculator(cfg.Scoring.Levels)
	if err != nil {
		return err
	}

	coordinator := scans.NewCoordinator(cfg.Scan, scans.Deps{
		Risks:        risks,
		Corpus:       risks,
		Embedder:     embedder,
		Index:        similarity.NewIndex(),
		VectorSearch: vectorSearch,
		Metrics:      collector,
		Logger:       logger,
	})

	assessSvc := assessment.NewService(assessment.Deps{
		Risks:      risks,
		Calculator: calc,
		Evaluator:  risk.NewEvaluator(calc),
		Logger:     logger,
	})

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, logger)
	defer producer.Close()

	registerSvc := register.NewService(register.Deps{
		Risks:  risks,
		Events: producer,
		Logger: logger,
	})

	pingers := map[string]handlers.Pinger{"postgres": pg}
	if rdb != nil {
		pingers["redis"] = rdb
	}

	routerDeps := httpserver.RouterDeps{
		Risks:    handlers.NewRiskHandler(assessSvc),
		Register: handlers.NewRegisterHandler(registerSvc),
		Scans:    handlers.NewScanHandler(coordinator),
		Health:   handlers.NewHealthHandler(config.Version, pingers),
		Logger:   logger,
		CORS:     middleware.CORSConfig{},
		Observer: collector,
	}
	if cfg.Metrics.Enabled {
		routerDeps.MetricsPath = cfg.Metrics.Path
		routerDeps.MetricsHandler = collector.Handler()
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(cfg.Server.Mode, routerDeps), logger)

	return server.Run(ctx)
}

// buildEmbedder assembles the embedding pipeline: configured provider,
// optionally wrapped by the redis vector cache.
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
	cached := embedding.NewCachedProvider(provider, cache, stats, logger)
	return cached, rdb, nil
}
