package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
)

// countingProvider is a deterministic in-memory Provider recording call
// counts.
type countingProvider struct {
	mu    sync.Mutex
	calls int
	dim   int
}

func (p *countingProvider) Embed(_ context.Context, text string) (similarity.Vector, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if isBlank(text) {
		return zeroVector(p.dim), nil
	}
	v := make(similarity.Vector, p.dim)
	for i, r := range text {
		v[i%p.dim] += float32(r)
	}
	return v, nil
}

func (p *countingProvider) Dimension() int { return p.dim }

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// mapCache is an in-memory VectorCache.
type mapCache struct {
	mu   sync.Mutex
	data map[string]similarity.Vector
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]similarity.Vector{}}
}

func (c *mapCache) GetVector(_ context.Context, key string) (similarity.Vector, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) SetVector(_ context.Context, key string, vec similarity.Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = vec
	return nil
}

func (c *mapCache) DeleteVector(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestHTTPProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{Dim: 3}
		for range req.Texts {
			resp.Vectors = append(resp.Vectors, []float32{1, 2, 3})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, Dimension: 3}, logging.NewNopLogger())
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "unauthorized database access")
	require.NoError(t, err)
	assert.Equal(t, similarity.Vector{1, 2, 3}, vec)
}

func TestHTTPProvider_BlankTextSkipsUpstream(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, Dimension: 4}, logging.NewNopLogger())
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, vec.IsZero())
	assert.Len(t, vec, 4)
	assert.Zero(t, hits)
}

func TestHTTPProvider_UpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, Dimension: 3}, logging.NewNopLogger())
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "some risk text")
	require.Error(t, err)
}

func TestHTTPProvider_EmbedBatch_MixedBlank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// Blank entries must not be forwarded upstream.
		require.Equal(t, []string{"first", "third"}, req.Texts)
		json.NewEncoder(w).Encode(embedResponse{
			Vectors: [][]float32{{1, 0}, {0, 1}},
			Dim:     2,
		})
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, Dimension: 2}, logging.NewNopLogger())
	require.NoError(t, err)

	got, err := p.EmbedBatch(context.Background(), []string{"first", "", "third"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, similarity.Vector{1, 0}, got[0])
	assert.True(t, got[1].IsZero())
	assert.Equal(t, similarity.Vector{0, 1}, got[2])
}

func TestCachedProvider_HitSkipsUpstream(t *testing.T) {
	upstream := &countingProvider{dim: 4}
	cached := NewCachedProvider(upstream, newMapCache(), nil, logging.NewNopLogger())

	ctx := context.Background()
	first, err := cached.Embed(ctx, "ransomware on file server")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "ransomware on file server")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.callCount())
}

func TestCachedProvider_BlankText(t *testing.T) {
	upstream := &countingProvider{dim: 4}
	cached := NewCachedProvider(upstream, newMapCache(), nil, logging.NewNopLogger())

	vec, err := cached.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, vec.IsZero())
	assert.Zero(t, upstream.callCount())
}

func TestCachedProvider_Invalidate(t *testing.T) {
	upstream := &countingProvider{dim: 4}
	cached := NewCachedProvider(upstream, newMapCache(), nil, logging.NewNopLogger())

	ctx := context.Background()
	_, err := cached.Embed(ctx, "stale text")
	require.NoError(t, err)
	require.NoError(t, cached.Invalidate(ctx, "stale text"))

	_, err = cached.Embed(ctx, "stale text")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.callCount())
}
