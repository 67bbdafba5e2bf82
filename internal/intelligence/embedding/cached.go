package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/sync/singleflight"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
)

// VectorCache is the port the caching decorator writes through. The redis
// adapter in internal/infrastructure/database/redis implements it.
type VectorCache interface {
	// GetVector returns the cached vector for key, with ok=false on a miss.
	// Cache errors are reported but callers should degrade to the upstream
	// provider rather than fail.
	GetVector(ctx context.Context, key string) (similarity.Vector, bool, error)
	// SetVector stores the vector under key with the adapter's TTL.
	SetVector(ctx context.Context, key string, vec similarity.Vector) error
	// DeleteVector removes a cached vector; used when a risk's text changes.
	DeleteVector(ctx context.Context, key string) error
}

// CacheStats is implemented by callers interested in hit/miss accounting
// (the prometheus collector).
type CacheStats interface {
	CacheHit()
	CacheMiss()
}

// CachedProvider decorates a Provider with a vector cache keyed by a hash of
// the text. Identical text always maps to an identical vector, so cached
// entries never go stale for a given model; the key incorporates the
// dimension so a model change invalidates naturally. Concurrent requests for
// the same key are collapsed with singleflight.
type CachedProvider struct {
	upstream Provider
	cache    VectorCache
	stats    CacheStats
	logger   logging.Logger
	group    singleflight.Group
	prefix   string
}

// NewCachedProvider constructs the decorator. stats may be nil.
func NewCachedProvider(upstream Provider, cache VectorCache, stats CacheStats, logger logging.Logger) *CachedProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedProvider{
		upstream: upstream,
		cache:    cache,
		stats:    stats,
		logger:   logger.Named("embedding.cache"),
		prefix:   "emb:",
	}
}

// Dimension returns the upstream provider's dimension.
func (p *CachedProvider) Dimension() int { return p.upstream.Dimension() }

// CacheKey returns the cache key for a text. Exposed so the worker can
// invalidate entries when risk text changes.
func (p *CachedProvider) CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return p.prefix + hex.EncodeToString(sum[:16])
}

// Embed serves from cache when possible, otherwise calls upstream and
// populates the cache. Cache failures degrade to the upstream call; an
// unreachable cache never fails an embed.
func (p *CachedProvider) Embed(ctx context.Context, text string) (similarity.Vector, error) {
	if isBlank(text) {
		return zeroVector(p.upstream.Dimension()), nil
	}
	key := p.CacheKey(text)

	if vec, ok, err := p.cache.GetVector(ctx, key); err != nil {
		p.logger.Warn("vector cache read failed", logging.Err(err))
	} else if ok && len(vec) == p.upstream.Dimension() {
		if p.stats != nil {
			p.stats.CacheHit()
		}
		return vec, nil
	}
	if p.stats != nil {
		p.stats.CacheMiss()
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		vec, err := p.upstream.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := p.cache.SetVector(ctx, key, vec); err != nil {
			p.logger.Warn("vector cache write failed", logging.Err(err))
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(similarity.Vector), nil
}

// Invalidate drops the cached vector for a text.
func (p *CachedProvider) Invalidate(ctx context.Context, text string) error {
	return p.cache.DeleteVector(ctx, p.CacheKey(text))
}
