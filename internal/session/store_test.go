package session

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo ping failed: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	return NewStore(client, &config.Config{
		DBName:               "pdf_qa_test",
		CompressionAlgorithm: "brotli",
		CompressionMinBytes:  32,
	})
}

func TestStoreIngestionLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	sessionID := "test-session-lifecycle"
	t.Cleanup(func() { store.DeleteSession(ctx, sessionID) })

	if err := store.CreateSession(ctx, sessionID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if v, err := store.IndexVersion(ctx, sessionID); err != nil || v != 0 {
		t.Fatalf("IndexVersion = %d, %v; want 0, nil", v, err)
	}

	longText := "a long chunk of text that clears the compression threshold easily, repeated words words words"
	chunks := []models.ChunkRecord{
		{SessionID: sessionID, DocumentID: "d1", ChunkID: "c1", Order: 0, Text: "short", Vector: []float32{1, 0}},
		{SessionID: sessionID, DocumentID: "d1", ChunkID: "c2", Order: 1, Text: longText, Vector: []float32{0, 1}},
	}
	docs := []models.Document{{SessionID: sessionID, DocID: "d1", Filename: "a.txt", SourceType: "txt", Status: models.StatusCompleted, UploadedAt: time.Now()}}

	v, err := store.ReplaceIngestion(ctx, sessionID, docs, chunks)
	if err != nil {
		t.Fatalf("ReplaceIngestion: %v", err)
	}
	if v != 1 {
		t.Errorf("index version = %d, want 1", v)
	}

	loaded, err := store.LoadChunks(ctx, sessionID)
	if err != nil {
		t.Fatalf("LoadChunks: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d chunks, want 2", len(loaded))
	}
	if loaded[0].Text != "short" || loaded[1].Text != longText {
		t.Errorf("chunk text mismatch after round trip: %q / %q", loaded[0].Text, loaded[1].Text)
	}
	if len(loaded[1].Vector) != 2 {
		t.Errorf("vector lost in round trip")
	}

	// Replacement drops the previous corpus.
	v, err = store.ReplaceIngestion(ctx, sessionID, nil, chunks[:1])
	if err != nil {
		t.Fatalf("ReplaceIngestion: %v", err)
	}
	if v != 2 {
		t.Errorf("index version = %d, want 2", v)
	}
	loaded, err = store.LoadChunks(ctx, sessionID)
	if err != nil {
		t.Fatalf("LoadChunks: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("got %d chunks after replace, want 1", len(loaded))
	}

	if err := store.ClearSession(ctx, sessionID); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if v, _ := store.IndexVersion(ctx, sessionID); v != 0 {
		t.Errorf("index version after clear = %d, want 0", v)
	}
	loaded, _ = store.LoadChunks(ctx, sessionID)
	if len(loaded) != 0 {
		t.Errorf("chunks remain after clear: %d", len(loaded))
	}
}

func TestStoreFindDocumentByHash(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	sessionID := "test-session-hash"
	t.Cleanup(func() { store.DeleteSession(ctx, sessionID) })

	doc := models.Document{
		SessionID:  sessionID,
		DocID:      "d1",
		Filename:   "report.pdf",
		FileHash:   "feedface00",
		SourceType: "pdf",
		Status:     models.StatusCompleted,
		UploadedAt: time.Now(),
	}
	if err := store.InsertDocument(ctx, doc); err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	found, err := store.FindDocumentByHash(ctx, sessionID, "feedface00")
	if err != nil {
		t.Fatalf("FindDocumentByHash: %v", err)
	}
	if found == nil || found.Filename != "report.pdf" {
		t.Errorf("found = %+v, want report.pdf", found)
	}

	if miss, err := store.FindDocumentByHash(ctx, sessionID, "0000"); err != nil || miss != nil {
		t.Errorf("unknown hash: got %+v, %v; want nil, nil", miss, err)
	}
	if blank, err := store.FindDocumentByHash(ctx, sessionID, ""); err != nil || blank != nil {
		t.Errorf("empty hash: got %+v, %v; want nil, nil", blank, err)
	}
}

func TestStoreTurns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	sessionID := "test-session-turns"
	t.Cleanup(func() { store.DeleteSession(ctx, sessionID) })

	if err := store.CreateSession(ctx, sessionID); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	turns := []models.Turn{
		{SessionID: sessionID, Role: models.RoleUser, Content: "q1", Position: 0, Timestamp: time.Now()},
		{SessionID: sessionID, Role: models.RoleAssistant, Content: "a1", Position: 1, Timestamp: time.Now()},
	}
	if err := store.AppendTurns(ctx, turns); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}

	loaded, err := store.LoadTurns(ctx, sessionID)
	if err != nil {
		t.Fatalf("LoadTurns: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d turns, want 2", len(loaded))
	}
	if loaded[0].Content != "q1" || loaded[1].Content != "a1" {
		t.Errorf("turn order wrong: %q, %q", loaded[0].Content, loaded[1].Content)
	}

	// Replacing the corpus invalidates the stored history too.
	chunks := []models.ChunkRecord{
		{SessionID: sessionID, DocumentID: "d1", ChunkID: "c1", Order: 0, Text: "fresh", Vector: []float32{1}},
	}
	if _, err := store.ReplaceIngestion(ctx, sessionID, nil, chunks); err != nil {
		t.Fatalf("ReplaceIngestion: %v", err)
	}
	loaded, err = store.LoadTurns(ctx, sessionID)
	if err != nil {
		t.Fatalf("LoadTurns: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("turns remain after corpus replace: %d", len(loaded))
	}
}
