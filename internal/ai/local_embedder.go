package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder is a deterministic hashed bag-of-words embedder. Each token
// is hashed into one of dim buckets with a hash-derived sign, the bucket
// counts are accumulated and the vector is L2-normalized. It needs no
// network and no model files, which makes it the offline fallback and the
// embedder used in tests.
type LocalEmbedder struct {
	dim int
}

func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &LocalEmbedder{dim: dim}
}

func (e *LocalEmbedder) Dimension() int { return e.dim }

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	normalized, err := normalizeInput("local", text)
	if err != nil {
		return nil, err
	}

	vec := make([]float32, e.dim)
	for _, token := range tokenize(normalized) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		sign := float32(1)
		if (sum>>63)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	l2Normalize(vec)
	return vec, nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func l2Normalize(vec []float32) {
	sum := 0.0
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= n
	}
}
