package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

type recordingEmbedder struct {
	texts []string
	fail  bool
}

func (e *recordingEmbedder) Embed(_ context.Context, text string) (similarity.Vector, error) {
	if e.fail {
		return nil, errors.Upstream("embedding service down")
	}
	e.texts = append(e.texts, text)
	return similarity.Vector{1, 0}, nil
}

func (e *recordingEmbedder) Dimension() int { return 2 }

type recordingStore struct {
	upserts []string
	deletes []string
}

func (s *recordingStore) Upsert(_ context.Context, riskID, _ string, _ similarity.Vector) error {
	s.upserts = append(s.upserts, riskID)
	return nil
}

func (s *recordingStore) Delete(_ context.Context, riskID string) error {
	s.deletes = append(s.deletes, riskID)
	return nil
}

func TestReindexRiskEmbedsCombinedText(t *testing.T) {
	embedder := &recordingEmbedder{}
	store := &recordingStore{}
	ix := NewIndexer(Deps{Embedder: embedder, Vectors: store, Logger: logging.NewNopLogger()})

	err := ix.ReindexRisk(context.Background(), "r-1",
		"Unauthorized DB access", "External actor", "Production database")
	require.NoError(t, err)

	require.Len(t, embedder.texts, 1)
	assert.Equal(t, "Unauthorized DB access\n\nExternal actor\n\nProduction database", embedder.texts[0])
	assert.Equal(t, []string{"r-1"}, store.upserts)
}

func TestReindexRiskWithoutVectorStore(t *testing.T) {
	embedder := &recordingEmbedder{}
	ix := NewIndexer(Deps{Embedder: embedder, Logger: logging.NewNopLogger()})

	require.NoError(t, ix.ReindexRisk(context.Background(), "r-1", "Unauthorized DB access", "", ""))
	assert.Len(t, embedder.texts, 1)
}

func TestReindexRiskEmbeddingFailure(t *testing.T) {
	ix := NewIndexer(Deps{
		Embedder: &recordingEmbedder{fail: true},
		Vectors:  &recordingStore{},
		Logger:   logging.NewNopLogger(),
	})

	err := ix.ReindexRisk(context.Background(), "r-1", "Unauthorized DB access", "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingFailed))
}

func TestReindexRiskRejectsEmptyID(t *testing.T) {
	ix := NewIndexer(Deps{Embedder: &recordingEmbedder{}, Logger: logging.NewNopLogger()})
	err := ix.ReindexRisk(context.Background(), "", "title", "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRemoveRisk(t *testing.T) {
	store := &recordingStore{}
	ix := NewIndexer(Deps{Embedder: &recordingEmbedder{}, Vectors: store, Logger: logging.NewNopLogger()})

	require.NoError(t, ix.RemoveRisk(context.Background(), "r-9"))
	assert.Equal(t, []string{"r-9"}, store.deletes)

	// Without a vector store removal is a no-op.
	bare := NewIndexer(Deps{Embedder: &recordingEmbedder{}, Logger: logging.NewNopLogger()})
	assert.NoError(t, bare.RemoveRisk(context.Background(), "r-9"))
}
