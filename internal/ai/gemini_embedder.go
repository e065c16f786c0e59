package ai

import (
	"context"
	"fmt"

	"pdf-qa-service/internal/config"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiEmbedder produces embeddings through the Google Generative AI API
// (text-embedding-004 by default). A client-side rate limiter keeps bursts
// of chunk embedding under the API quota.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	dim     int
	limiter *rate.Limiter
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	rps := cfg.EmbeddingRPS
	if rps <= 0 {
		rps = 5
	}
	return &GeminiEmbedder{
		client:  client,
		model:   cfg.GoogleEmbeddingsModel,
		dim:     cfg.EmbeddingDimensions,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}, nil
}

func (e *GeminiEmbedder) Dimension() int { return e.dim }

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized, err := normalizeInput("google", text)
	if err != nil {
		return nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &EmbeddingError{Provider: "google", Err: err}
	}

	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(normalized))
	if err != nil {
		return nil, &EmbeddingError{Provider: "google", Err: err}
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, &EmbeddingError{Provider: "google", Err: fmt.Errorf("no embedding returned")}
	}
	if e.dim != 0 && len(resp.Embedding.Values) != e.dim {
		return nil, &EmbeddingError{Provider: "google", Err: fmt.Errorf("backend returned dimension %d, expected %d", len(resp.Embedding.Values), e.dim)}
	}
	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.client.EmbeddingModel(e.model)
	batch := model.NewBatch()
	for _, t := range texts {
		normalized, err := normalizeInput("google", t)
		if err != nil {
			return nil, err
		}
		batch.AddContent(genai.Text(normalized))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &EmbeddingError{Provider: "google", Err: err}
	}
	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &EmbeddingError{Provider: "google", Err: err}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &EmbeddingError{Provider: "google", Err: fmt.Errorf("backend returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))}
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &EmbeddingError{Provider: "google", Err: fmt.Errorf("no embedding returned for input %d", i)}
		}
		out = append(out, emb.Values)
	}
	return out, nil
}

func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
