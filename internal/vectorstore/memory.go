package vectorstore

import (
	"fmt"
	"math"
	"sort"
)

// Payload carries the chunk text and enough metadata to attribute an answer
// back to its source document.
type Payload struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	Order      int    `json:"order"`
	Source     string `json:"source,omitempty"`
	Text       string `json:"text"`
}

// Entry is one vector plus its payload, as submitted to Build.
type Entry struct {
	Vector  []float32
	Payload Payload
}

// Result is a search hit. Score is cosine similarity in [-1, 1].
type Result struct {
	Payload Payload `json:"payload"`
	Score   float64 `json:"score"`
}

// Index is an immutable brute-force cosine similarity index. It is never
// mutated after Build, so any number of goroutines may search it concurrently.
// Re-ingestion replaces the whole index rather than merging into it.
type Index struct {
	dim      int
	vectors  [][]float32
	norms    []float64
	payloads []Payload
}

// Build constructs a fresh queryable index from the given entries. All
// vectors must share one dimension. An empty entry set yields a valid
// empty index.
func Build(entries []Entry) (*Index, error) {
	ix := &Index{}
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("entry %d: empty vector", i)
		}
		if ix.dim == 0 {
			ix.dim = len(e.Vector)
		} else if len(e.Vector) != ix.dim {
			return nil, fmt.Errorf("entry %d: dimension %d does not match index dimension %d", i, len(e.Vector), ix.dim)
		}
		ix.vectors = append(ix.vectors, e.Vector)
		ix.norms = append(ix.norms, norm(e.Vector))
		ix.payloads = append(ix.payloads, e.Payload)
	}
	return ix, nil
}

// Search returns up to k entries nearest to query by cosine similarity,
// best first. Ties are broken by insertion order. A small or empty index
// returns fewer than k results, never an error.
func (ix *Index) Search(query []float32, k int) []Result {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}

	qn := norm(query)
	type scored struct {
		pos   int
		score float64
	}
	hits := make([]scored, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = scored{pos: i, score: cosine(v, query, ix.norms[i], qn)}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].pos < hits[b].pos
	})

	if k > len(hits) {
		k = len(hits)
	}
	results := make([]Result, 0, k)
	for _, h := range hits[:k] {
		results = append(results, Result{Payload: ix.payloads[h.pos], Score: h.score})
	}
	return results
}

// Len reports the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// Dimension reports the vector dimension the index was built with.
// Zero for an empty index.
func (ix *Index) Dimension() int {
	return ix.dim
}

func cosine(a, b []float32, an, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum / (an * bn)
}

func norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
