// Package milvus provides the ANN-backed vector store used when the register
// corpus outgrows the in-process linear index. The worker keeps the
// collection in sync with the risks table; the scan coordinator only reads.
package milvus

import (
	"context"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// newMilvusClient is a variable to allow substitution in tests.
var newMilvusClient = client.NewClient

// Config holds the connection and collection parameters.
type Config struct {
	Addr           string
	Username       string
	Password       string
	CollectionName string
	Dimension      int
	// NList is the IVF partition count used when the index is first built.
	NList int
	// NProbe is the per-search partition fan-out.
	NProbe         int
	ConnectTimeout time.Duration
}

// Client wraps the Milvus SDK client.
type Client struct {
	milvus client.Client
	cfg    Config
	logger logging.Logger
}

// NewClient connects to Milvus.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.NList <= 0 {
		cfg.NList = 128
	}
	if cfg.NProbe <= 0 {
		cfg.NProbe = 16
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	mc, err := newMilvusClient(dialCtx, client.Config{
		Address:  cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "milvus connection failed")
	}

	log.Info("milvus connected", logging.String("addr", cfg.Addr))
	return &Client{milvus: mc, cfg: cfg, logger: log}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.milvus.Close()
}
