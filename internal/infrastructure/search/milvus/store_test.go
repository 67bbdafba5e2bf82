package milvus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

func testStore(dim int) *Store {
	c := &Client{cfg: Config{CollectionName: "risk_vectors", Dimension: dim, NProbe: 16}}
	return NewStore(c, logging.NewNopLogger())
}

func TestStoreRejectsDimensionMismatchBeforeDialing(t *testing.T) {
	s := testStore(4)

	err := s.Upsert(context.Background(), "r1", "title", similarity.Vector{1, 2})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))

	_, err = s.TopK(context.Background(), similarity.Vector{1, 2, 3}, "", 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))
}

func TestStoreTopKZeroLimit(t *testing.T) {
	s := testStore(3)
	out, err := s.TopK(context.Background(), similarity.Vector{1, 0, 0}, "", 0)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestQuoteExpr(t *testing.T) {
	assert.Equal(t, `"r-1"`, quoteExpr("r-1"))
	assert.Equal(t, `"say \"hi\""`, quoteExpr(`say "hi"`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 512))
	assert.Equal(t, "ab", truncate("abcd", 2))
}
