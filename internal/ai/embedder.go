package ai

import (
	"context"
	"fmt"
	"strings"
)

// EmbeddingError indicates an embedding backend failure or malformed input.
// It is recoverable: callers may retry the operation.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed (%s): %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Embedder maps text to a fixed-dimension vector. Implementations must be
// deterministic for a fixed model configuration: the same input always
// yields the same vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// normalizeInput trims whitespace and rejects empty input before it
// reaches a backend.
func normalizeInput(provider, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &EmbeddingError{Provider: provider, Err: fmt.Errorf("empty text after normalization")}
	}
	return trimmed, nil
}
