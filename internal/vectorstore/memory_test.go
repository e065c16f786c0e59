package vectorstore

import (
	"testing"
)

func buildTest(t *testing.T, vectors ...[]float32) *Index {
	t.Helper()
	entries := make([]Entry, len(vectors))
	for i, v := range vectors {
		entries[i] = Entry{Vector: v, Payload: Payload{Order: i, ChunkID: string(rune('a' + i))}}
	}
	ix, err := Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestSearchOrdering(t *testing.T) {
	ix := buildTest(t,
		[]float32{1, 0},  // aligned with query
		[]float32{0, 1},  // orthogonal
		[]float32{1, 1},  // in between
		[]float32{-1, 0}, // opposite
	)

	results := ix.Search([]float32{1, 0}, 4)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	wantOrder := []int{0, 2, 1, 3}
	for i, w := range wantOrder {
		if results[i].Payload.Order != w {
			t.Errorf("result %d: got entry %d, want %d", i, results[i].Payload.Order, w)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: score[%d]=%v > score[%d]=%v",
				i, results[i].Score, i-1, results[i-1].Score)
		}
	}
}

func TestSearchTiesByInsertionOrder(t *testing.T) {
	// Three identical vectors: scores tie exactly, insertion order decides.
	ix := buildTest(t,
		[]float32{1, 2, 3},
		[]float32{1, 2, 3},
		[]float32{1, 2, 3},
	)
	results := ix.Search([]float32{1, 2, 3}, 3)
	for i, r := range results {
		if r.Payload.Order != i {
			t.Errorf("tie at rank %d resolved to entry %d, want %d", i, r.Payload.Order, i)
		}
	}
}

func TestSearchKLargerThanIndex(t *testing.T) {
	ix := buildTest(t, []float32{1, 0}, []float32{0, 1})
	results := ix.Search([]float32{1, 1}, 10)
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if got := ix.Search([]float32{1, 2}, 5); got != nil {
		t.Errorf("Search on empty index = %v, want nil", got)
	}
	if ix.Len() != 0 || ix.Dimension() != 0 {
		t.Errorf("empty index: Len=%d Dimension=%d", ix.Len(), ix.Dimension())
	}
}

func TestSearchZeroK(t *testing.T) {
	ix := buildTest(t, []float32{1, 0})
	if got := ix.Search([]float32{1, 0}, 0); got != nil {
		t.Errorf("Search with k=0 = %v, want nil", got)
	}
	if got := ix.Search([]float32{1, 0}, -1); got != nil {
		t.Errorf("Search with k=-1 = %v, want nil", got)
	}
}

func TestBuildRejectsMixedDimensions(t *testing.T) {
	_, err := Build([]Entry{
		{Vector: []float32{1, 2, 3}},
		{Vector: []float32{1, 2}},
	})
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestBuildRejectsEmptyVector(t *testing.T) {
	_, err := Build([]Entry{{Vector: nil}})
	if err == nil {
		t.Error("expected empty vector error")
	}
}

func TestSearchZeroQueryVector(t *testing.T) {
	ix := buildTest(t, []float32{1, 0}, []float32{0, 1})
	results := ix.Search([]float32{0, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("zero query should score 0, got %v", r.Score)
		}
	}
}
