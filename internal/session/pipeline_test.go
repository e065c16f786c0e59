package session

import (
	"context"
	"strings"
	"testing"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/chunker"
	"pdf-qa-service/internal/vectorstore"
)

// Full pipeline without external services: chunk a document, embed with the
// local embedder, build the index, then answer a question against it.
func TestIngestToAnswerPipeline(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString(strings.Repeat("w", 95) + " end")
		b.WriteString("\n")
	}
	text := b.String() // 25 lines of 100 bytes
	if len(text) != 2500 {
		t.Fatalf("fixture length = %d, want 2500", len(text))
	}

	splitter, err := chunker.New(chunker.Config{ChunkSize: 1000, Overlap: 200, Separator: "\n"})
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}
	chunks := splitter.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	bounds := []struct{ start, end int }{{0, 1000}, {800, 1800}, {1600, 2500}}
	for i, w := range bounds {
		if chunks[i].Start != w.start || chunks[i].End != w.end {
			t.Errorf("chunk %d: [%d,%d), want [%d,%d)", i, chunks[i].Start, chunks[i].End, w.start, w.end)
		}
	}

	embedder := ai.NewLocalEmbedder(64)
	ctx := context.Background()
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	entries := make([]vectorstore.Entry, len(vectors))
	for i, vec := range vectors {
		entries[i] = vectorstore.Entry{
			Vector:  vec,
			Payload: vectorstore.Payload{Order: i, Text: texts[i]},
		}
	}
	index, err := vectorstore.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	query, err := embedder.Embed(ctx, "x")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	results := index.Search(query, 5)
	if len(results) != 3 {
		t.Fatalf("search returned %d results, want all 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ranked at position %d", i)
		}
	}

	conv := NewConversationManager(embedder, &fakeChat{answer: "It is a repetitive test document."}, 3)
	conv.SetIndex(index)
	answer, err := conv.Ask(ctx, "s1", "what is this about?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text == "" {
		t.Error("empty answer")
	}
	if conv.TurnCount() != 2 {
		t.Errorf("history length = %d, want 2", conv.TurnCount())
	}
}
