// Package postgres manages the PostgreSQL connection pool and schema
// migrations for the risk register.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// Config holds the connection pool parameters.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Connection wraps a pgx pool with the platform's logging.
type Connection struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewConnection builds the pool and verifies it with a ping.
func NewConnection(ctx context.Context, cfg Config, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid postgres dsn")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to build postgres pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "postgres connection failed")
	}

	log.Info("postgres connected",
		logging.String("database", poolCfg.ConnConfig.Database),
		logging.String("host", poolCfg.ConnConfig.Host))
	return &Connection{pool: pool, logger: log}, nil
}

// Pool exposes the underlying pool for repositories in this package.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// Ping reports connection health for the readiness probe.
func (c *Connection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close drains and closes the pool.
func (c *Connection) Close() {
	c.pool.Close()
}
