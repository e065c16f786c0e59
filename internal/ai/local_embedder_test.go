package ai

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at index %d", i)
		}
	}
}

func TestLocalEmbedderDimension(t *testing.T) {
	e := NewLocalEmbedder(128)
	if e.Dimension() != 128 {
		t.Errorf("Dimension() = %d, want 128", e.Dimension())
	}
	v, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != 128 {
		t.Errorf("len(vector) = %d, want 128", len(v))
	}

	// Zero or negative dims fall back to the default.
	if d := NewLocalEmbedder(0).Dimension(); d != 256 {
		t.Errorf("default dimension = %d, want 256", d)
	}
}

func TestLocalEmbedderUnitNorm(t *testing.T) {
	e := NewLocalEmbedder(64)
	v, err := e.Embed(context.Background(), "normalization check with several tokens")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", math.Sqrt(sum))
	}
}

func TestLocalEmbedderRejectsEmptyInput(t *testing.T) {
	e := NewLocalEmbedder(64)
	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := e.Embed(context.Background(), input)
		if err == nil {
			t.Errorf("Embed(%q): expected error", input)
			continue
		}
		var embErr *EmbeddingError
		if !errors.As(err, &embErr) {
			t.Errorf("Embed(%q): error %v is not an EmbeddingError", input, err)
		}
	}
}

func TestLocalEmbedderBatchMatchesSingle(t *testing.T) {
	e := NewLocalEmbedder(64)
	ctx := context.Background()
	texts := []string{"first chunk of text", "second chunk", "third"}

	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch vector %d differs from single embedding", i)
			}
		}
	}
}

func TestLocalEmbedderBatchFailsOnEmptyEntry(t *testing.T) {
	e := NewLocalEmbedder(64)
	_, err := e.EmbedBatch(context.Background(), []string{"ok", ""})
	if err == nil {
		t.Error("expected error for batch containing empty text")
	}
}
