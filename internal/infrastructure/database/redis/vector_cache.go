package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/pkg/errors"
)

// VectorCache stores embedding vectors in Redis with a TTL. It satisfies the
// cache port of the cached embedding provider; a miss is (nil, false, nil),
// never an error.
type VectorCache struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewVectorCache builds a vector cache. Keys are stored as
// "<prefix>:vec:<key>" so several environments can share one Redis.
func NewVectorCache(client *Client, prefix string, ttl time.Duration) *VectorCache {
	if prefix == "" {
		prefix = "granite"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VectorCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *VectorCache) redisKey(key string) string {
	return c.prefix + ":vec:" + key
}

// GetVector returns the cached vector for key, with ok=false on a miss.
func (c *VectorCache) GetVector(ctx context.Context, key string) (similarity.Vector, bool, error) {
	raw, err := c.client.Raw().Get(ctx, c.redisKey(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "vector cache read failed")
	}

	var vec similarity.Vector
	if err := json.Unmarshal(raw, &vec); err != nil {
		// A corrupt entry behaves like a miss after being evicted.
		_ = c.client.Raw().Del(ctx, c.redisKey(key)).Err()
		return nil, false, nil
	}
	return vec, true, nil
}

// SetVector stores vec under key with the configured TTL.
func (c *VectorCache) SetVector(ctx context.Context, key string, vec similarity.Vector) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "vector encode failed")
	}
	if err := c.client.Raw().Set(ctx, c.redisKey(key), raw, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "vector cache write failed")
	}
	return nil
}

// DeleteVector removes a cached vector, used when a risk's text changes.
func (c *VectorCache) DeleteVector(ctx context.Context, key string) error {
	if err := c.client.Raw().Del(ctx, c.redisKey(key)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "vector cache delete failed")
	}
	return nil
}
