package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

const (
	fieldRiskID    = "risk_id"
	fieldTitle     = "title"
	fieldEmbedding = "embedding"

	// maxScanLimit bounds threshold queries; a register with more matches
	// above the duplicate threshold than this has a bigger problem.
	maxScanLimit = 16384
)

// Store implements the scan coordinator's vector-search port over a Milvus
// collection and gives the worker upsert and delete access to it.
type Store struct {
	client *Client
	logger logging.Logger
}

// NewStore builds a Store over an established client.
func NewStore(c *Client, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{client: c, logger: log}
}

// EnsureCollection creates, indexes and loads the collection when it does not
// exist yet. Safe to call on every startup.
func (s *Store) EnsureCollection(ctx context.Context) error {
	mc := s.client.milvus
	cfg := s.client.cfg

	exists, err := mc.HasCollection(ctx, cfg.CollectionName)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "collection lookup failed")
	}
	if !exists {
		schema := &entity.Schema{
			CollectionName: cfg.CollectionName,
			Description:    "risk register embedding vectors",
			Fields: []*entity.Field{
				{
					Name:       fieldRiskID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					TypeParams: map[string]string{entity.TypeParamMaxLength: "64"},
				},
				{
					Name:       fieldTitle,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{entity.TypeParamMaxLength: "512"},
				},
				{
					Name:       fieldEmbedding,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{entity.TypeParamDim: strconv.Itoa(cfg.Dimension)},
				},
			},
		}
		if err := mc.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "collection create failed")
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, cfg.NList)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "index build failed")
		}
		if err := mc.CreateIndex(ctx, cfg.CollectionName, fieldEmbedding, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "index create failed")
		}
	}

	if err := mc.LoadCollection(ctx, cfg.CollectionName, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "collection load failed")
	}
	return nil
}

// Upsert writes one risk's embedding, replacing any previous vector.
func (s *Store) Upsert(ctx context.Context, riskID, title string, vec similarity.Vector) error {
	cfg := s.client.cfg
	if len(vec) != cfg.Dimension {
		return errors.Newf(errors.ErrCodeDimensionMismatch,
			"vector dimension %d does not match collection dimension %d", len(vec), cfg.Dimension)
	}

	_, err := s.client.milvus.Upsert(ctx, cfg.CollectionName, "",
		entity.NewColumnVarChar(fieldRiskID, []string{riskID}),
		entity.NewColumnVarChar(fieldTitle, []string{truncate(title, 512)}),
		entity.NewColumnFloatVector(fieldEmbedding, cfg.Dimension, [][]float32{vec}),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "vector upsert failed")
	}
	return nil
}

// Delete removes one risk's embedding.
func (s *Store) Delete(ctx context.Context, riskID string) error {
	cfg := s.client.cfg
	expr := fmt.Sprintf(`%s == %s`, fieldRiskID, quoteExpr(riskID))
	if err := s.client.milvus.Delete(ctx, cfg.CollectionName, "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "vector delete failed")
	}
	return nil
}

// TopK returns the k nearest register entries by scaled similarity score,
// excluding excludeID when non-empty.
func (s *Store) TopK(ctx context.Context, query similarity.Vector, excludeID string, k int) ([]similarity.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	return s.search(ctx, query, excludeID, k, 0)
}

// AboveThreshold returns every entry whose scaled score clears minScore.
func (s *Store) AboveThreshold(ctx context.Context, query similarity.Vector, excludeID string, minScore float64) ([]similarity.Candidate, error) {
	return s.search(ctx, query, excludeID, maxScanLimit, minScore)
}

func (s *Store) search(ctx context.Context, query similarity.Vector, excludeID string, k int, minScore float64) ([]similarity.Candidate, error) {
	cfg := s.client.cfg
	if len(query) != cfg.Dimension {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"query dimension %d does not match collection dimension %d", len(query), cfg.Dimension)
	}

	expr := ""
	if excludeID != "" {
		expr = fmt.Sprintf(`%s != %s`, fieldRiskID, quoteExpr(excludeID))
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(cfg.NProbe)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "search param build failed")
	}

	results, err := s.client.milvus.Search(ctx, cfg.CollectionName, nil, expr,
		[]string{fieldTitle}, []entity.Vector{entity.FloatVector(query)},
		fieldEmbedding, entity.COSINE, k, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreFailure, "vector search failed")
	}

	var out []similarity.Candidate
	for _, res := range results {
		ids, ok := res.IDs.(*entity.ColumnVarChar)
		if !ok {
			return nil, errors.New(errors.ErrCodeVectorStoreFailure, "unexpected id column type")
		}
		titles, _ := res.Fields.GetColumn(fieldTitle).(*entity.ColumnVarChar)

		for i := 0; i < res.ResultCount; i++ {
			// Milvus returns raw cosine similarity; the engine's contract is
			// the 0..100 scaled score.
			score := similarity.ScaleToPercent(float64(res.Scores[i]))
			if minScore > 0 && score < minScore {
				continue
			}
			cand := similarity.Candidate{RiskID: ids.Data()[i], Score: score}
			if titles != nil && i < len(titles.Data()) {
				cand.Title = titles.Data()[i]
			}
			out = append(out, cand)
		}
	}
	return out, nil
}

// quoteExpr renders a string literal for a Milvus boolean expression.
func quoteExpr(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
