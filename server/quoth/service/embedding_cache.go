package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keeeal/quoth/server/common/log"
)

// EmbeddingCache is a read-through cache for query-text embeddings. The
// ingestion path embeds each message exactly once, but the query path can see
// the same text many times; caching keeps repeat queries off the rate-limited
// inference backend. Cache failures degrade to the inner embedder.
type EmbeddingCache struct {
	inner Embedder
	redis *redis.Client
	ttl   time.Duration
}

func NewEmbeddingCache(inner Embedder, client *redis.Client, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{inner: inner, redis: client, ttl: ttl}
}

func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := embeddingCacheKey(text)
	if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var vector []float32
		if json.Unmarshal(raw, &vector) == nil {
			return vector, nil
		}
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(vector); err == nil {
		if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			log.Warnf("cache embedding: %v", err)
		}
	}
	return vector, nil
}

func embeddingCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "quoth:embedding:" + hex.EncodeToString(sum[:])
}
