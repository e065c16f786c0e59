package session

import (
	"context"
	"testing"
	"time"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/ingest"
)

func managerConfig() *config.Config {
	return &config.Config{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		ChunkSeparator: "\n",
		TopK:           2,
		AskTimeout:     time.Minute,
	}
}

// A resumed session must serve its persisted conversation history and
// keep it across the lazy index rebuild on the first ask.
func TestResumeRestoresHistory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	cfg := managerConfig()
	embedder := ai.NewLocalEmbedder(64)
	chat := &fakeChat{answer: "the first answer"}

	manager := NewManager(cfg, embedder, chat, store)
	sess, err := manager.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { store.DeleteSession(context.Background(), sess.ID) })

	docs := []ingest.Document{{ID: "d1", Source: "notes.txt", Text: "the meeting is on tuesday at noon"}}
	if _, err := sess.LoadDocuments(ctx, docs, nil); err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if _, err := sess.Ask(ctx, "when is the meeting?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// A fresh manager over the same store stands in for a restarted process.
	restarted := NewManager(cfg, embedder, chat, store)
	resumed, err := restarted.GetOrResume(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetOrResume: %v", err)
	}

	turns := resumed.History()
	if len(turns) != 2 {
		t.Fatalf("restored history has %d turns, want 2", len(turns))
	}
	if turns[0].Content != "when is the meeting?" || turns[1].Content != "the first answer" {
		t.Errorf("restored turns = %q, %q", turns[0].Content, turns[1].Content)
	}

	// The first ask rebuilds the index from the stored chunks without
	// discarding the restored history.
	chat.answer = "a second answer"
	if _, err := resumed.Ask(ctx, "a follow-up?"); err != nil {
		t.Fatalf("Ask after resume: %v", err)
	}
	if got := len(resumed.History()); got != 4 {
		t.Errorf("history has %d turns after follow-up, want 4", got)
	}
}
