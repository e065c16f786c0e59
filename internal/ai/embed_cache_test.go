package ai

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis ping failed: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestCachedEmbedderLookupOutcomes(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()

	cached := NewCachedEmbedder(NewLocalEmbedder(32), rdb, "test-model", time.Minute)
	var hits, misses int
	cached.OnLookup(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	// Unique per run so the first lookup is always cold.
	text := fmt.Sprintf("cached embedding sample %d", time.Now().UnixNano())

	first, err := cached.Embed(ctx, text)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := cached.Embed(ctx, text)
	if err != nil {
		t.Fatalf("Embed (cached): %v", err)
	}
	if hits != 1 || misses != 1 {
		t.Errorf("hits=%d misses=%d after two lookups, want 1/1", hits, misses)
	}
	if len(first) != len(second) {
		t.Fatalf("vector lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}

	// A batch over one cached and one new input records one of each.
	if _, err := cached.EmbedBatch(ctx, []string{text, text + " extended"}); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if hits != 2 || misses != 2 {
		t.Errorf("hits=%d misses=%d after batch, want 2/2", hits, misses)
	}
}
