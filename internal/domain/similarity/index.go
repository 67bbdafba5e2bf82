package similarity

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/granite-grc/granite/pkg/errors"
)

// CorpusVector pairs one register entry's embedding with the summary fields
// needed for result display.
type CorpusVector struct {
	ID     string
	Title  string
	Vector Vector
}

// Candidate is one corpus entry scored against a query. Score is in 0..100.
// Candidates are computed on demand and never persisted; a fresh ranking
// must be re-run after the corpus changes.
type Candidate struct {
	RiskID string  `json:"risk_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Index ranks a query vector against a corpus with a linear cosine scan.
// The scan is embarrassingly parallel, so large corpora are sharded across
// workers; correctness does not depend on the parallelism. Index is
// stateless and safe for concurrent use.
type Index struct {
	workers   int
	shardSize int
}

// Option configures an Index.
type Option func(*Index)

// WithWorkers caps the number of concurrent scoring goroutines.
func WithWorkers(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithShardSize sets the number of corpus entries scored per task.
func WithShardSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.shardSize = n
		}
	}
}

// NewIndex constructs an Index. Defaults: GOMAXPROCS workers, 256-entry
// shards.
func NewIndex(opts ...Option) *Index {
	ix := &Index{
		workers:   runtime.GOMAXPROCS(0),
		shardSize: 256,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// scoreAll computes the scaled score of every corpus entry against the
// query, preserving corpus order in the result slice so later stable sorts
// break ties by insertion order.
func (ix *Index) scoreAll(ctx context.Context, query Vector, corpus []CorpusVector) ([]Candidate, error) {
	for i := range corpus {
		if len(corpus[i].Vector) != len(query) {
			return nil, errors.New(errors.ErrCodeDimensionMismatch, "corpus vector dimension differs from query").
				WithDetail(corpus[i].ID)
		}
	}

	out := make([]Candidate, len(corpus))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for start := 0; start < len(corpus); start += ix.shardSize {
		start := start
		end := start + ix.shardSize
		if end > len(corpus) {
			end = len(corpus)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = Candidate{
					RiskID: corpus[i].ID,
					Title:  corpus[i].Title,
					Score:  ScaleToPercent(Cosine(query, corpus[i].Vector)),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rank returns the corpus scored against the query, descending by score with
// ties broken by corpus insertion order, truncated to limit. An empty corpus
// yields an empty slice. Repeated calls over an unchanged corpus and query
// return identical ordered output.
func (ix *Index) Rank(ctx context.Context, query Vector, corpus []CorpusVector, limit int) ([]Candidate, error) {
	if len(corpus) == 0 {
		return []Candidate{}, nil
	}
	if limit <= 0 {
		limit = len(corpus)
	}

	scored, err := ix.scoreAll(ctx, query, corpus)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Threshold returns every corpus entry scoring at least minScore against the
// query, descending by score with insertion-order tie-break. Used for the
// pre-save duplicate alert, so there is no limit.
func (ix *Index) Threshold(ctx context.Context, query Vector, corpus []CorpusVector, minScore float64) ([]Candidate, error) {
	if len(corpus) == 0 {
		return []Candidate{}, nil
	}

	scored, err := ix.scoreAll(ctx, query, corpus)
	if err != nil {
		return nil, err
	}

	kept := scored[:0]
	for _, c := range scored {
		if c.Score >= minScore {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept, nil
}
