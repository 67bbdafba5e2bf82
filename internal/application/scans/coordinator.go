package scans

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/internal/intelligence/embedding"
	"github.com/granite-grc/granite/pkg/errors"
)

// Searcher ranks a query vector against an in-memory corpus. Implemented by
// *similarity.Index.
type Searcher interface {
	Rank(ctx context.Context, query similarity.Vector, corpus []similarity.CorpusVector, limit int) ([]similarity.Candidate, error)
	Threshold(ctx context.Context, query similarity.Vector, corpus []similarity.CorpusVector, minScore float64) ([]similarity.Candidate, error)
}

// VectorSearcher is the optional ANN-backed alternative for corpora too
// large for an interactive linear scan. Implementations keep their own
// vector store in sync (the worker does this) and must match linear-scan
// ranking for the top k within a small tolerance.
type VectorSearcher interface {
	TopK(ctx context.Context, query similarity.Vector, excludeID string, k int) ([]similarity.Candidate, error)
	AboveThreshold(ctx context.Context, query similarity.Vector, excludeID string, minScore float64) ([]similarity.Candidate, error)
}

// Metrics is the optional instrumentation hook for scan accounting.
type Metrics interface {
	ScanStarted()
	ScanCompleted(d time.Duration)
	ScanFailed()
	PresaveCheck(matched bool)
}

// Config tunes the coordinator. Zero values fall back to DefaultConfig.
type Config struct {
	// DefaultLimit is the result-list size of an on-demand scan.
	DefaultLimit int `mapstructure:"default_limit"`
	// PresaveThreshold is the minimum 0..100 score for pre-save duplicate
	// hints.
	PresaveThreshold float64 `mapstructure:"presave_threshold"`
	// MinTitleLength gates the pre-save check; shorter titles return empty
	// without touching the embedding provider.
	MinTitleLength int `mapstructure:"min_title_length"`
	// ProgressTick is the progress-estimate cadence.
	ProgressTick time.Duration `mapstructure:"progress_tick"`
	// EstimatedItemCost is the assumed wall-clock cost of comparing one
	// corpus entry, driving the time-based progress estimate.
	EstimatedItemCost time.Duration `mapstructure:"estimated_item_cost"`
	// ProgressCap bounds the reported percentage until the computation
	// truly finishes.
	ProgressCap int `mapstructure:"progress_cap"`
	// CompletionHold is how long the snapped-to-100 state is shown before
	// the final result is published.
	CompletionHold time.Duration `mapstructure:"completion_hold"`
	// RetentionTTL is how long finished scan states remain pollable.
	RetentionTTL time.Duration `mapstructure:"retention_ttl"`
}

// DefaultConfig returns the coordinator's standard tuning.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:      10,
		PresaveThreshold:  70,
		MinTitleLength:    3,
		ProgressTick:      200 * time.Millisecond,
		EstimatedItemCost: 25 * time.Millisecond,
		ProgressCap:       95,
		CompletionHold:    250 * time.Millisecond,
		RetentionTTL:      5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.PresaveThreshold <= 0 {
		c.PresaveThreshold = d.PresaveThreshold
	}
	if c.MinTitleLength <= 0 {
		c.MinTitleLength = d.MinTitleLength
	}
	if c.ProgressTick <= 0 {
		c.ProgressTick = d.ProgressTick
	}
	if c.EstimatedItemCost <= 0 {
		c.EstimatedItemCost = d.EstimatedItemCost
	}
	if c.ProgressCap <= 0 || c.ProgressCap >= 100 {
		c.ProgressCap = d.ProgressCap
	}
	if c.CompletionHold < 0 {
		c.CompletionHold = d.CompletionHold
	}
	if c.RetentionTTL <= 0 {
		c.RetentionTTL = d.RetentionTTL
	}
	return c
}

// Deps holds the coordinator's collaborators. VectorSearch and Metrics are
// optional.
type Deps struct {
	Risks        risk.Reader
	Corpus       risk.CorpusSource
	Embedder     embedding.Provider
	Index        Searcher
	VectorSearch VectorSearcher
	Metrics      Metrics
	Logger       logging.Logger
}

// scan is the internal, token-scoped record of one in-flight or finished
// scan. All fields behind mu; done is closed exactly once when a terminal
// state has been published.
type scan struct {
	token  string
	riskID string
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     State
	progress  Progress
	results   []similarity.Candidate
	err       error
	updatedAt time.Time
}

func (s *scan) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Token:     s.token,
		RiskID:    s.riskID,
		State:     s.state,
		Progress:  s.progress,
		UpdatedAt: s.updatedAt,
	}
	if s.state == StateCompleted {
		st.Results = append([]similarity.Candidate(nil), s.results...)
	}
	if s.state == StateFailed && s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

// Coordinator runs similarity scans. Every scan is correlated with an opaque
// token; progress lives on the scan record, never in process-wide state, so
// concurrent scans for different risks are fully independent.
type Coordinator struct {
	cfg     Config
	risks   risk.Reader
	corpus  risk.CorpusSource
	embed   embedding.Provider
	index   Searcher
	ann     VectorSearcher
	metrics Metrics
	logger  logging.Logger

	mu            sync.Mutex
	scans         map[string]*scan
	currentByRisk map[string]string
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(cfg Config, deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		cfg:           cfg.withDefaults(),
		risks:         deps.Risks,
		corpus:        deps.Corpus,
		embed:         deps.Embedder,
		index:         deps.Index,
		ann:           deps.VectorSearch,
		metrics:       deps.Metrics,
		logger:        logger.Named("scans"),
		scans:         make(map[string]*scan),
		currentByRisk: make(map[string]string),
	}
}

// retryOnce runs fn and, on failure, retries exactly once with no backoff.
// Upstream calls here are interactive and latency-sensitive; a backoff would
// cost more than the retry is worth.
func retryOnce[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || ctx.Err() != nil {
		return v, err
	}
	return fn(ctx)
}

// StartScan begins an on-demand scan for the given risk and returns its
// token immediately. A new scan for the same risk supersedes any in-flight
// one: the old token's results are discarded, never delivered. limit <= 0
// uses the configured default.
func (c *Coordinator) StartScan(ctx context.Context, riskID string, limit int) (string, error) {
	if riskID == "" {
		return "", errors.NewValidationError("risk_id", "risk id is required")
	}
	if limit <= 0 {
		limit = c.cfg.DefaultLimit
	}

	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &scan{
		token:     uuid.NewString(),
		riskID:    riskID,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateRunning,
		updatedAt: time.Now(),
	}

	c.mu.Lock()
	c.purgeExpiredLocked()
	if prevToken, ok := c.currentByRisk[riskID]; ok {
		if prev, ok := c.scans[prevToken]; ok && !prev.snapshot().State.Terminal() {
			prev.cancel()
		}
	}
	c.scans[s.token] = s
	c.currentByRisk[riskID] = s.token
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ScanStarted()
	}
	go c.run(scanCtx, s, limit)
	return s.token, nil
}

// Status returns the snapshot for a token. Superseded or expired tokens
// report scan-not-found.
func (c *Coordinator) Status(token string) (Status, error) {
	c.mu.Lock()
	s, ok := c.scans[token]
	c.mu.Unlock()
	if !ok {
		return Status{}, errors.New(errors.ErrCodeScanNotFound, "unknown scan token").WithDetail(token)
	}
	return s.snapshot(), nil
}

// Cancel abandons a scan. Progress updates stop and no result is ever
// delivered for the token.
func (c *Coordinator) Cancel(token string) {
	c.mu.Lock()
	s, ok := c.scans[token]
	c.mu.Unlock()
	if ok {
		s.cancel()
	}
}

// ScanForRisk runs an on-demand scan synchronously and returns the ranked
// result list.
func (c *Coordinator) ScanForRisk(ctx context.Context, riskID string, limit int) ([]similarity.Candidate, error) {
	token, err := c.StartScan(ctx, riskID, limit)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	s := c.scans[token]
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		s.cancel()
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "scan abandoned")
	case <-s.done:
	}

	st := s.snapshot()
	if st.State == StateFailed {
		return nil, errors.New(errors.ErrCodeScanFailed, "similarity scan failed").WithDetail(st.Error)
	}
	return st.Results, nil
}

// CheckSimilarity is the pre-save duplicate check. It is a non-blocking UX
// hint: any upstream failure is swallowed and an empty list returned, and a
// title shorter than the configured minimum returns empty without a single
// embedding call.
func (c *Coordinator) CheckSimilarity(ctx context.Context, title, threatDescription, description string) []similarity.Candidate {
	if len([]rune(strings.TrimSpace(title))) < c.cfg.MinTitleLength {
		return []similarity.Candidate{}
	}

	draft := &risk.Assessment{Title: title, ThreatDescription: threatDescription, Description: description}
	query, err := retryOnce(ctx, func(ctx context.Context) (similarity.Vector, error) {
		return c.embed.Embed(ctx, draft.CombinedText())
	})
	if err != nil {
		c.logger.Warn("pre-save check degraded: embed failed", logging.Err(err))
		return []similarity.Candidate{}
	}

	var matches []similarity.Candidate
	if c.ann != nil {
		matches, err = c.ann.AboveThreshold(ctx, query, "", c.cfg.PresaveThreshold)
	} else {
		var corpus []risk.CorpusEntry
		corpus, err = retryOnce(ctx, func(ctx context.Context) ([]risk.CorpusEntry, error) {
			return c.corpus.FetchCorpus(ctx, "")
		})
		if err == nil {
			var vectors []similarity.CorpusVector
			vectors, err = c.embedCorpus(ctx, corpus)
			if err == nil {
				matches, err = c.index.Threshold(ctx, query, vectors, c.cfg.PresaveThreshold)
			}
		}
	}
	if err != nil {
		c.logger.Warn("pre-save check degraded: search failed", logging.Err(err))
		return []similarity.Candidate{}
	}

	if c.metrics != nil {
		c.metrics.PresaveCheck(len(matches) > 0)
	}
	return matches
}

// run executes one scan to a terminal state. The progress ticker is stopped
// before the terminal state is published, so the last observation on a token
// is always the terminal one.
func (c *Coordinator) run(ctx context.Context, s *scan, limit int) {
	start := time.Now()

	results, err := c.compute(ctx, s, limit)

	if err != nil {
		// A failed or canceled scan resets its progress to a zeroed
		// state so a retry starts clean.
		s.mu.Lock()
		s.state = StateFailed
		s.progress = Progress{}
		s.results = nil
		s.err = err
		s.updatedAt = time.Now()
		s.mu.Unlock()

		if c.metrics != nil {
			c.metrics.ScanFailed()
		}
		c.logger.Warn("similarity scan failed",
			logging.String("risk_id", s.riskID),
			logging.String("token", s.token),
			logging.Err(err),
		)
		c.finish(s)
		return
	}

	// Snap to 100 and hold briefly before delivering the final result.
	s.mu.Lock()
	total := s.progress.Total
	s.progress = Progress{Processed: total, Total: total, Percentage: 100}
	s.updatedAt = time.Now()
	s.mu.Unlock()

	if c.cfg.CompletionHold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.CompletionHold):
		}
	}

	s.mu.Lock()
	s.state = StateCompleted
	s.results = results
	s.updatedAt = time.Now()
	s.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ScanCompleted(time.Since(start))
	}
	c.logger.Info("similarity scan completed",
		logging.String("risk_id", s.riskID),
		logging.String("token", s.token),
		logging.Int("results", len(results)),
		logging.Duration("took", time.Since(start)),
	)
	c.finish(s)
}

// compute performs the actual fetch-embed-rank pipeline while the progress
// ticker runs concurrently. The ticker is always stopped before compute
// returns.
func (c *Coordinator) compute(ctx context.Context, s *scan, limit int) ([]similarity.Candidate, error) {
	target, err := retryOnce(ctx, func(ctx context.Context) (*risk.Assessment, error) {
		return c.risks.GetRiskByID(ctx, s.riskID)
	})
	if err != nil {
		return nil, err
	}

	corpus, err := retryOnce(ctx, func(ctx context.Context) ([]risk.CorpusEntry, error) {
		return c.corpus.FetchCorpus(ctx, s.riskID)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusUnavailable, "fetch corpus")
	}

	s.mu.Lock()
	s.progress = Progress{Total: len(corpus)}
	s.mu.Unlock()

	// The reported progress is a wall-clock estimate: the corpus may be
	// embedded lazily or served from cache upstream, so true per-item
	// completion is not observable here.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go c.tickProgress(ctx, s, stop, &wg)
	defer func() {
		close(stop)
		wg.Wait()
	}()

	query, err := retryOnce(ctx, func(ctx context.Context) (similarity.Vector, error) {
		return c.embed.Embed(ctx, target.CombinedText())
	})
	if err != nil {
		return nil, err
	}

	if c.ann != nil {
		return c.ann.TopK(ctx, query, s.riskID, limit)
	}

	vectors, err := c.embedCorpus(ctx, corpus)
	if err != nil {
		return nil, err
	}
	return c.index.Rank(ctx, query, vectors, limit)
}

// embedCorpus converts corpus entries into scored vectors, batching when the
// provider supports it.
func (c *Coordinator) embedCorpus(ctx context.Context, corpus []risk.CorpusEntry) ([]similarity.CorpusVector, error) {
	out := make([]similarity.CorpusVector, len(corpus))

	if batcher, ok := c.embed.(embedding.BatchProvider); ok {
		texts := make([]string, len(corpus))
		for i, e := range corpus {
			texts[i] = e.CombinedText()
		}
		vecs, err := retryOnce(ctx, func(ctx context.Context) ([]similarity.Vector, error) {
			return batcher.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return nil, err
		}
		for i, e := range corpus {
			out[i] = similarity.CorpusVector{ID: e.ID, Title: e.Title, Vector: vecs[i]}
		}
		return out, nil
	}

	for i, e := range corpus {
		vec, err := retryOnce(ctx, func(ctx context.Context) (similarity.Vector, error) {
			return c.embed.Embed(ctx, e.CombinedText())
		})
		if err != nil {
			return nil, err
		}
		out[i] = similarity.CorpusVector{ID: e.ID, Title: e.Title, Vector: vec}
	}
	return out, nil
}

// tickProgress emits monotonically non-decreasing progress estimates on a
// fixed cadence until stopped. The estimate is elapsed time over the assumed
// per-item cost, capped below 100 until the real computation finishes.
func (c *Coordinator) tickProgress(ctx context.Context, s *scan, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(c.cfg.ProgressTick)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateRunning || s.progress.Total == 0 {
				s.mu.Unlock()
				continue
			}
			estimated := int(time.Since(start) / c.cfg.EstimatedItemCost)
			if estimated > s.progress.Total {
				estimated = s.progress.Total
			}
			if estimated > s.progress.Processed {
				s.progress.Processed = estimated
			}
			pct := s.progress.Processed * 100 / s.progress.Total
			if pct > c.cfg.ProgressCap {
				pct = c.cfg.ProgressCap
			}
			if pct > s.progress.Percentage {
				s.progress.Percentage = pct
			}
			s.updatedAt = time.Now()
			s.mu.Unlock()
		}
	}
}

// finish publishes the terminal state: supersede checks, the done channel,
// and registry bookkeeping.
func (c *Coordinator) finish(s *scan) {
	c.mu.Lock()
	if c.currentByRisk[s.riskID] != s.token {
		// A newer scan for the same risk superseded this one; its result
		// must never surface.
		s.mu.Lock()
		s.state = StateFailed
		s.progress = Progress{}
		s.results = nil
		s.err = errors.New(errors.ErrCodeScanSuperseded, "scan superseded by a newer request")
		s.mu.Unlock()
	}
	c.mu.Unlock()
	close(s.done)
}

// purgeExpiredLocked drops finished scans past the retention TTL. Caller
// holds c.mu.
func (c *Coordinator) purgeExpiredLocked() {
	cutoff := time.Now().Add(-c.cfg.RetentionTTL)
	for token, s := range c.scans {
		st := s.snapshot()
		if st.State.Terminal() && st.UpdatedAt.Before(cutoff) {
			delete(c.scans, token)
			if c.currentByRisk[st.RiskID] == token {
				delete(c.currentByRisk, st.RiskID)
			}
		}
	}
}
