package scans

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// fakeReader serves assessments from a map.
type fakeReader struct {
	risks map[string]*risk.Assessment
}

func (r *fakeReader) GetRiskByID(_ context.Context, id string) (*risk.Assessment, error) {
	a, ok := r.risks[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeRiskNotFound, "risk not found").WithDetail(id)
	}
	return a, nil
}

// fakeCorpus records the exclusion it was asked for and can fail a set
// number of times before succeeding.
type fakeCorpus struct {
	mu          sync.Mutex
	entries     []risk.CorpusEntry
	failures    int
	calls       int
	lastExclude string
}

func (c *fakeCorpus) FetchCorpus(_ context.Context, excludeID string) ([]risk.CorpusEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastExclude = excludeID
	if c.failures > 0 {
		c.failures--
		return nil, errors.New(errors.ErrCodeDatabaseError, "corpus source down")
	}
	out := make([]risk.CorpusEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// fakeEmbedder returns fixed vectors per text, counting calls. Unknown text
// gets a deterministic derived vector. delay simulates a slow model.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string]similarity.Vector
	dim      int
	delay    time.Duration
	delayFor string // when set, only this text is delayed
	failures int
	calls    int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) (similarity.Vector, error) {
	if e.delay > 0 && (e.delayFor == "" || e.delayFor == text) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.delay):
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures > 0 {
		e.failures--
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "model unavailable")
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	v := make(similarity.Vector, e.dim)
	for i, r := range text {
		v[i%e.dim] += float32(r % 17)
	}
	return v, nil
}

func (e *fakeEmbedder) Dimension() int { return e.dim }

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func fastConfig() Config {
	return Config{
		DefaultLimit:      10,
		PresaveThreshold:  70,
		MinTitleLength:    3,
		ProgressTick:      10 * time.Millisecond,
		EstimatedItemCost: time.Millisecond,
		ProgressCap:       95,
		CompletionHold:    time.Nanosecond,
		RetentionTTL:      time.Minute,
	}
}

func newTestCoordinator(cfg Config, reader *fakeReader, corpus *fakeCorpus, embed *fakeEmbedder) *Coordinator {
	return NewCoordinator(cfg, Deps{
		Risks:    reader,
		Corpus:   corpus,
		Embedder: embed,
		Index:    similarity.NewIndex(),
		Logger:   logging.NewNopLogger(),
	})
}

func scenarioFixtures() (*fakeReader, *fakeCorpus, *fakeEmbedder) {
	reader := &fakeReader{risks: map[string]*risk.Assessment{
		"target": {ID: "target", Title: "Database accessed without authorization"},
	}}
	corpus := &fakeCorpus{entries: []risk.CorpusEntry{
		{ID: "target", Title: "Database accessed without authorization"},
		{ID: "r1", Title: "Unauthorized DB access"},
		{ID: "r2", Title: "Office plant needs watering"},
	}}
	embed := &fakeEmbedder{dim: 2, vectors: map[string]similarity.Vector{
		"Database accessed without authorization": {1, 0},
		"Unauthorized DB access":                  {0.95, 0.05},
		"Office plant needs watering":             {0, 1},
	}}
	return reader, corpus, embed
}

func TestCoordinator_ScanForRisk(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	got, err := c.ScanForRisk(context.Background(), "target", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The target itself is excluded from the corpus.
	assert.Equal(t, "target", corpus.lastExclude)
	assert.Equal(t, "r1", got[0].RiskID)
	assert.Greater(t, got[0].Score, 90.0)
	assert.Equal(t, "r2", got[1].RiskID)
	assert.InDelta(t, 50.0, got[1].Score, 1e-6)
}

func TestCoordinator_ScanForRisk_UnknownRisk(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	_, err := c.ScanForRisk(context.Background(), "nope", 10)
	require.Error(t, err)
}

func TestCoordinator_StartScan_RequiresRiskID(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	_, err := c.StartScan(context.Background(), "", 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCoordinator_RetriesUpstreamOnce(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	corpus.failures = 1 // first fetch fails, the single retry succeeds
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	got, err := c.ScanForRisk(context.Background(), "target", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, corpus.calls)
}

func TestCoordinator_FailsAfterSecondUpstreamError(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	corpus.failures = 2
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	_, err := c.ScanForRisk(context.Background(), "target", 10)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScanFailed))
}

func TestCoordinator_FailureZeroesProgress(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	corpus.failures = 2
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	token, err := c.StartScan(context.Background(), "target", 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := c.Status(token)
		return err == nil && st.State == StateFailed
	}, time.Second, 5*time.Millisecond)

	st, err := c.Status(token)
	require.NoError(t, err)
	assert.Equal(t, Progress{}, st.Progress)
	assert.Empty(t, st.Results)
	assert.NotEmpty(t, st.Error)
}

func TestCoordinator_ProgressIsMonotoneAndCapped(t *testing.T) {
	reader := &fakeReader{risks: map[string]*risk.Assessment{
		"target": {ID: "target", Title: "Slow scan target"},
	}}
	entries := make([]risk.CorpusEntry, 500)
	for i := range entries {
		entries[i] = risk.CorpusEntry{ID: string(rune('a'+i%26)) + "x", Title: "corpus entry"}
	}
	corpus := &fakeCorpus{entries: entries}
	// The query embed dominates the scan; progress ticks while it runs.
	embed := &fakeEmbedder{dim: 3, delay: 150 * time.Millisecond, delayFor: "Slow scan target"}

	cfg := fastConfig()
	cfg.EstimatedItemCost = time.Millisecond
	c := NewCoordinator(cfg, Deps{
		Risks:    reader,
		Corpus:   corpus,
		Embedder: embed,
		Index:    similarity.NewIndex(),
		Logger:   logging.NewNopLogger(),
	})

	token, err := c.StartScan(context.Background(), "target", 5)
	require.NoError(t, err)

	var last Progress
	deadline := time.Now().Add(2 * time.Second)
	sawMidFlight := false
	for time.Now().Before(deadline) {
		st, err := c.Status(token)
		require.NoError(t, err)

		// Monotone percentage; estimates never exceed the cap. A reading
		// of exactly 100 while RUNNING is the snapped completion hold.
		assert.GreaterOrEqual(t, st.Progress.Percentage, last.Percentage)
		assert.GreaterOrEqual(t, st.Progress.Processed, last.Processed)
		if st.State == StateRunning && st.Progress.Percentage > 0 && st.Progress.Percentage < 100 {
			assert.LessOrEqual(t, st.Progress.Percentage, 95)
			sawMidFlight = true
		}
		last = st.Progress
		if st.State.Terminal() {
			break
		}
		time.Sleep(15 * time.Millisecond)
	}

	st, err := c.Status(token)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, st.State)
	assert.Equal(t, 100, st.Progress.Percentage)
	assert.Equal(t, 500, st.Progress.Total)
	assert.Equal(t, 500, st.Progress.Processed)
	assert.True(t, sawMidFlight, "expected to observe an in-flight progress estimate")
}

func TestCoordinator_NewScanSupersedesOld(t *testing.T) {
	reader, corpus, _ := scenarioFixtures()
	embed := &fakeEmbedder{dim: 2, delay: 60 * time.Millisecond, vectors: map[string]similarity.Vector{}}
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	first, err := c.StartScan(context.Background(), "target", 5)
	require.NoError(t, err)
	second, err := c.StartScan(context.Background(), "target", 5)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.Eventually(t, func() bool {
		st, err := c.Status(second)
		return err == nil && st.State == StateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		st, err := c.Status(first)
		return err == nil && st.State == StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	// The stale token never carries results.
	st, err := c.Status(first)
	require.NoError(t, err)
	assert.Empty(t, st.Results)
}

func TestCoordinator_Cancel(t *testing.T) {
	reader, corpus, _ := scenarioFixtures()
	embed := &fakeEmbedder{dim: 2, delay: 200 * time.Millisecond, vectors: map[string]similarity.Vector{}}
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	token, err := c.StartScan(context.Background(), "target", 5)
	require.NoError(t, err)
	c.Cancel(token)

	require.Eventually(t, func() bool {
		st, err := c.Status(token)
		return err == nil && st.State == StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	st, err := c.Status(token)
	require.NoError(t, err)
	assert.Equal(t, Progress{}, st.Progress)
}

func TestCoordinator_Status_UnknownToken(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	_, err := c.Status("no-such-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScanNotFound))
}

func TestCoordinator_CheckSimilarity(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	got := c.CheckSimilarity(context.Background(), "Database accessed without authorization", "", "")
	require.Len(t, got, 2) // the stored duplicate of the query text plus r1
	for _, m := range got {
		assert.GreaterOrEqual(t, m.Score, 70.0)
	}
}

func TestCoordinator_CheckSimilarity_ShortTitleSkipsEmbedding(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	got := c.CheckSimilarity(context.Background(), "ab", "long threat description", "long description")
	assert.Empty(t, got)
	assert.Zero(t, embed.callCount())
	assert.Zero(t, corpus.calls)

	// Whitespace padding does not help a short title.
	got = c.CheckSimilarity(context.Background(), "  ab  ", "", "")
	assert.Empty(t, got)
	assert.Zero(t, embed.callCount())
}

func TestCoordinator_CheckSimilarity_SwallowsUpstreamErrors(t *testing.T) {
	reader, corpus, embed := scenarioFixtures()
	embed.failures = 2 // both the call and its retry fail
	c := newTestCoordinator(fastConfig(), reader, corpus, embed)

	got := c.CheckSimilarity(context.Background(), "Database accessed without authorization", "", "")
	assert.Empty(t, got)
}
