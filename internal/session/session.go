package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/chunker"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/ingest"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/vectorstore"
	"pdf-qa-service/models"
)

// Session ties one client's corpus, index and conversation together. All
// operations are serialized behind a mutex so a reset cannot race an
// in-flight ask.
type Session struct {
	ID string

	mu       sync.Mutex
	splitter *chunker.Splitter
	embedder ai.Embedder
	conv     *ConversationManager
	store    *Store

	// indexVersion tracks which stored corpus the in-memory index was
	// built from. The async worker bumps the stored version; Ask rebuilds
	// when they diverge.
	indexVersion int64

	chunkCount int
	docCount   int

	askTimeout time.Duration
	createdAt  time.Time
	lastActive time.Time
}

// IngestResult reports what LoadDocuments accomplished.
type IngestResult struct {
	Documents    int              `json:"documents"`
	Chunks       int              `json:"chunks"`
	Failures     []ingest.Failure `json:"failures,omitempty"`
	IndexVersion int64            `json:"index_version"`
	Duration     time.Duration    `json:"-"`
}

func New(cfg *config.Config, embedder ai.Embedder, chat ai.ChatModel, store *Store) (*Session, error) {
	splitter, err := chunker.New(chunker.Config{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
		Separator: cfg.ChunkSeparator,
	})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		splitter:   splitter,
		embedder:   embedder,
		conv:       NewConversationManager(embedder, chat, cfg.TopK),
		store:      store,
		askTimeout: cfg.AskTimeout,
		createdAt:  now,
		lastActive: now,
	}, nil
}

// LoadDocuments chunks and embeds the extracted documents, builds a fresh
// index, and resets the conversation. The previous corpus is replaced
// entirely; history is cleared because it referred to documents that no
// longer back the index.
func (s *Session) LoadDocuments(ctx context.Context, docs []ingest.Document, failures []ingest.Failure) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	start := time.Now()

	records, chunkRecords, entries, err := s.prepare(ctx, docs)
	if err != nil {
		return nil, err
	}

	index, err := vectorstore.Build(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	version, err := s.store.ReplaceIngestion(ctx, s.ID, records, chunkRecords)
	if err != nil {
		// Persistence failed but the in-memory index is sound; serve from
		// memory and let the next ingestion reconcile.
		logger.Error("Failed to persist ingestion", "session_id", s.ID, "error", err)
		version = s.indexVersion + 1
	}

	s.conv.SetIndex(index)
	s.conv.ResetHistory()
	s.indexVersion = version
	s.chunkCount = len(chunkRecords)
	s.docCount = len(docs)

	logger.Info("Documents loaded",
		"session_id", s.ID,
		"documents", len(docs),
		"chunks", len(chunkRecords),
		"failures", len(failures),
		"index_version", version,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &IngestResult{
		Documents:    len(docs),
		Chunks:       len(chunkRecords),
		Failures:     failures,
		IndexVersion: version,
		Duration:     time.Since(start),
	}, nil
}

// prepare chunks and embeds the documents, producing the persistence
// records and index entries in corpus order.
func (s *Session) prepare(ctx context.Context, docs []ingest.Document) ([]models.Document, []models.ChunkRecord, []vectorstore.Entry, error) {
	var (
		records      []models.Document
		chunkRecords []models.ChunkRecord
		texts        []string
		payloads     []vectorstore.Payload
	)

	order := 0
	now := time.Now()
	for _, doc := range docs {
		chunks := s.splitter.Split(doc.Text)
		for _, ch := range chunks {
			chunkID := uuid.NewString()
			chunkRecords = append(chunkRecords, models.ChunkRecord{
				SessionID:  s.ID,
				DocumentID: doc.ID,
				ChunkID:    chunkID,
				Order:      order,
				Text:       ch.Text,
				StartIndex: ch.Start,
				EndIndex:   ch.End,
				Source:     doc.Source,
			})
			texts = append(texts, ch.Text)
			payloads = append(payloads, vectorstore.Payload{
				DocumentID: doc.ID,
				ChunkID:    chunkID,
				Order:      order,
				Source:     doc.Source,
				Text:       ch.Text,
			})
			order++
		}
		processed := now
		records = append(records, models.Document{
			SessionID:   s.ID,
			DocID:       doc.ID,
			Filename:    doc.Source,
			FileHash:    doc.FileHash,
			SourceType:  ingest.SourceType(doc.Source),
			Row:         doc.Row,
			Status:      models.StatusCompleted,
			UploadedAt:  now,
			ProcessedAt: &processed,
			Metadata: models.DocumentMetadata{
				Pages:          doc.Pages,
				WordCount:      len(strings.Fields(doc.Text)),
				CharacterCount: len(doc.Text),
			},
		})
	}

	var entries []vectorstore.Entry
	if len(texts) > 0 {
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, nil, nil, err
		}
		entries = make([]vectorstore.Entry, len(vectors))
		for i, vec := range vectors {
			chunkRecords[i].Vector = vec
			entries[i] = vectorstore.Entry{Vector: vec, Payload: payloads[i]}
		}
	}
	return records, chunkRecords, entries, nil
}

// Ask runs one retrieval-augmented turn. If the ingestion worker has
// advanced the stored index version since this process last built its
// index, the index is rebuilt from the stored chunks first.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ctx, cancel := context.WithTimeout(ctx, s.askTimeout)
	defer cancel()

	if err := s.syncIndex(ctx); err != nil {
		logger.Warn("Failed to sync index from store", "session_id", s.ID, "error", err)
	}

	answer, err := s.conv.Ask(ctx, s.ID, question)
	if err != nil {
		return nil, err
	}

	// Persist the two freshly committed turns. Persistence is best-effort:
	// the in-memory history is the source of truth for this process.
	history := s.conv.History()
	if len(history) >= 2 {
		if err := s.store.AppendTurns(ctx, history[len(history)-2:]); err != nil {
			logger.Warn("Failed to persist turns", "session_id", s.ID, "error", err)
		}
	}
	s.store.TouchSession(ctx, s.ID)

	return answer, nil
}

// syncIndex rebuilds the in-memory index when the stored corpus has moved
// past the version this index was built from. History is kept: the stored
// corpus only ever moves ahead here through worker appends or a restart,
// never a replace, so earlier answers still refer to live documents.
func (s *Session) syncIndex(ctx context.Context) error {
	stored, err := s.store.IndexVersion(ctx, s.ID)
	if err != nil {
		return err
	}
	if stored == s.indexVersion {
		return nil
	}

	records, err := s.store.LoadChunks(ctx, s.ID)
	if err != nil {
		return err
	}

	entries := make([]vectorstore.Entry, 0, len(records))
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			continue
		}
		entries = append(entries, vectorstore.Entry{
			Vector: rec.Vector,
			Payload: vectorstore.Payload{
				DocumentID: rec.DocumentID,
				ChunkID:    rec.ChunkID,
				Order:      rec.Order,
				Source:     rec.Source,
				Text:       rec.Text,
			},
		})
	}

	index, err := vectorstore.Build(entries)
	if err != nil {
		return err
	}

	s.conv.SetIndex(index)
	s.indexVersion = stored
	s.chunkCount = len(entries)
	if n, err := s.store.CountDocuments(ctx, s.ID); err == nil {
		s.docCount = int(n)
	}

	logger.Info("Index rebuilt from store",
		"session_id", s.ID, "chunks", len(entries), "index_version", stored)
	return nil
}

// History returns the committed turns of the conversation.
func (s *Session) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.History()
}

// Reset clears the corpus, index and history, returning the session to
// its initial idle state.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.conv.Clear()
	s.indexVersion = 0
	s.chunkCount = 0
	s.docCount = 0

	if err := s.store.ClearSession(ctx, s.ID); err != nil {
		return err
	}
	logger.Info("Session reset", "session_id", s.ID)
	return nil
}

// Snapshot returns the session's current status.
func (s *Session) Snapshot() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionInfo{
		SessionID:    s.ID,
		State:        string(s.conv.State()),
		Documents:    s.docCount,
		Chunks:       s.chunkCount,
		Turns:        s.conv.TurnCount(),
		IndexVersion: s.indexVersion,
		CreatedAt:    s.createdAt,
		LastActive:   s.lastActive,
	}
}

// LastActive reports when the session last served a request.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}
