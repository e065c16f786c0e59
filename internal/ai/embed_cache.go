package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"pdf-qa-service/internal/logger"

	"github.com/redis/go-redis/v9"
)

// CachedEmbedder wraps an Embedder with a Redis cache keyed by the SHA-256
// of the input text. Embeddings are deterministic for a fixed model, so
// cached vectors never go stale; the TTL only bounds memory. Redis being
// down degrades to pass-through, it never fails an embedding call.
type CachedEmbedder struct {
	inner    Embedder
	rdb      *redis.Client
	model    string
	ttl      time.Duration
	onLookup func(hit bool)
}

func NewCachedEmbedder(inner Embedder, rdb *redis.Client, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, rdb: rdb, model: model, ttl: ttl}
}

// OnLookup registers a callback invoked once per cache lookup, used for
// hit/miss accounting.
func (c *CachedEmbedder) OnLookup(fn func(hit bool)) {
	c.onLookup = fn
}

func (c *CachedEmbedder) lookup(hit bool) {
	if c.onLookup != nil {
		c.onLookup(hit)
	}
}

func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil && len(vec) == c.inner.Dimension() {
			c.lookup(true)
			return vec, nil
		}
	}
	c.lookup(false)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if data, err := c.rdb.Get(ctx, c.cacheKey(t)).Bytes(); err == nil {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil && len(vec) == c.inner.Dimension() {
				c.lookup(true)
				out[i] = vec
				continue
			}
		}
		c.lookup(false)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			if data, err := json.Marshal(vec); err == nil {
				if err := c.rdb.Set(ctx, c.cacheKey(missTexts[j]), data, c.ttl).Err(); err != nil {
					logger.Warn("embedding cache write failed", "error", err)
				}
			}
		}
	}
	return out, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embcache:%s:%s", c.model, hex.EncodeToString(sum[:]))
}
