package ai

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/telemetry"
)

// NewEmbedderFromConfig builds the configured embedder, wrapped in the
// Redis cache when a client is provided. Cache hit/miss counts flow into
// metrics when given. The returned cleanup function releases provider
// resources and is safe to call once.
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, rdb *redis.Client, metrics *telemetry.Metrics) (Embedder, func(), error) {
	var (
		inner   Embedder
		cleanup = func() {}
	)

	switch cfg.EmbeddingsProvider {
	case "google":
		gem, err := NewGeminiEmbedder(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		inner = gem
		cleanup = func() { gem.Close() }
	case "local":
		inner = NewLocalEmbedder(cfg.LocalEmbedderDim)
	default:
		return nil, nil, fmt.Errorf("unknown embeddings provider %q", cfg.EmbeddingsProvider)
	}

	if rdb != nil {
		cached := NewCachedEmbedder(inner, rdb, cfg.GoogleEmbeddingsModel, cfg.EmbedCacheTTL)
		if metrics != nil {
			cached.OnLookup(metrics.RecordEmbedCacheLookup)
		}
		inner = cached
	}
	return inner, cleanup, nil
}
