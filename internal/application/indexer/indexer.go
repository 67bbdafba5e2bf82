// Package indexer keeps the similarity side-stores in step with the risk
// register. The worker feeds it risk lifecycle events; it re-embeds the
// risk's text, warming the vector cache, and mirrors the vector into the ANN
// store when one is configured.
package indexer

import (
	"context"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/intelligence/embedding"
	"github.com/granite-grc/granite/pkg/errors"
)

// VectorStore is the slice of the ANN store the indexer writes to.
// Implemented by the milvus store.
type VectorStore interface {
	Upsert(ctx context.Context, riskID, title string, vec similarity.Vector) error
	Delete(ctx context.Context, riskID string) error
}

// Deps holds the indexer's collaborators. Vectors is optional; without it
// the indexer only warms the embedding cache.
type Deps struct {
	Embedder embedding.Provider
	Vectors  VectorStore
	Logger   logging.Logger
}

// Indexer applies risk changes to the similarity stores. Stateless; safe for
// concurrent use.
type Indexer struct {
	embed   embedding.Provider
	vectors VectorStore
	logger  logging.Logger
}

// NewIndexer constructs an Indexer.
func NewIndexer(deps Deps) *Indexer {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Indexer{
		embed:   deps.Embedder,
		vectors: deps.Vectors,
		logger:  logger.Named("indexer"),
	}
}

// ReindexRisk re-embeds a risk's comparison text. Embedding through the
// cached provider leaves the fresh vector in the cache, so the next
// interactive scan skips the upstream call.
func (ix *Indexer) ReindexRisk(ctx context.Context, riskID, title, threatDescription, description string) error {
	if riskID == "" {
		return errors.NewValidationError("riskID", "must not be empty")
	}

	entry := risk.CorpusEntry{
		ID:                riskID,
		Title:             title,
		ThreatDescription: threatDescription,
		Description:       description,
	}
	vec, err := ix.embed.Embed(ctx, entry.CombinedText())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "reindex embedding failed").WithDetail(riskID)
	}

	if ix.vectors != nil {
		if err := ix.vectors.Upsert(ctx, riskID, title, vec); err != nil {
			return err
		}
	}

	ix.logger.Debug("risk reindexed",
		logging.String("risk_id", riskID),
		logging.Int("dimension", len(vec)))
	return nil
}

// RemoveRisk drops a deleted risk from the ANN store. Cached embeddings are
// keyed by text hash and age out on their own.
func (ix *Indexer) RemoveRisk(ctx context.Context, riskID string) error {
	if riskID == "" {
		return errors.NewValidationError("riskID", "must not be empty")
	}
	if ix.vectors == nil {
		return nil
	}
	return ix.vectors.Delete(ctx, riskID)
}
