package ai

import (
	"context"
	"os"
	"testing"

	"pdf-qa-service/internal/config"
)

func TestGeminiEmbedderLive(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg := &config.Config{
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GoogleEmbeddingsModel: "text-embedding-004",
		EmbeddingDimensions:   768,
		EmbeddingRPS:          2,
	}

	ctx := context.Background()
	e, err := NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		t.Fatalf("NewGeminiEmbedder: %v", err)
	}
	defer e.Close()

	vec, err := e.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != cfg.EmbeddingDimensions {
		t.Errorf("got %d dimensions, want %d", len(vec), cfg.EmbeddingDimensions)
	}

	batch, err := e.EmbedBatch(ctx, []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("got %d vectors, want 2", len(batch))
	}
}
