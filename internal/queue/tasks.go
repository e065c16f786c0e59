package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/chunker"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/ingest"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/session"
	"pdf-qa-service/internal/telemetry"
	"pdf-qa-service/models"
)

const TaskIngestDocument = "ingest:process"

// IngestPayload describes one queued file ingestion. The file already
// sits on shared storage; the worker extracts, chunks, embeds and appends
// the result to the session's stored corpus.
type IngestPayload struct {
	SessionID    string `json:"session_id"`
	DocID        string `json:"doc_id"`
	FilePath     string `json:"file_path"`
	OriginalName string `json:"original_name"`
	FileHash     string `json:"file_hash"`
}

func NewIngestTask(sessionID, docID, filePath, originalName, fileHash string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		SessionID:    sessionID,
		DocID:        docID,
		FilePath:     filePath,
		OriginalName: originalName,
		FileHash:     fileHash,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// IngestProcessor handles queued ingestion tasks in the worker process.
type IngestProcessor struct {
	registry *ingest.Registry
	splitter *chunker.Splitter
	embedder ai.Embedder
	store    *session.Store
	metrics  *telemetry.Metrics
}

func NewIngestProcessor(cfg *config.Config, registry *ingest.Registry, embedder ai.Embedder, store *session.Store, metrics *telemetry.Metrics) (*IngestProcessor, error) {
	splitter, err := chunker.New(chunker.Config{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
		Separator: cfg.ChunkSeparator,
	})
	if err != nil {
		return nil, err
	}
	return &IngestProcessor{
		registry: registry,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		metrics:  metrics,
	}, nil
}

// ProcessIngest extracts, chunks and embeds one uploaded file, appending
// the results to the session's stored corpus and bumping its index
// version so the API process rebuilds on the next ask.
func (p *IngestProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	start := time.Now()
	logger.Info("Processing queued ingestion",
		"session_id", payload.SessionID, "doc_id", payload.DocID, "file", payload.OriginalName)

	if err := p.store.UpdateDocumentStatus(ctx, payload.SessionID, payload.DocID, models.StatusProcessing, ""); err != nil {
		logger.Warn("Failed to mark document processing", "doc_id", payload.DocID, "error", err)
	}

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		p.fail(ctx, payload, start, fmt.Sprintf("read file: %v", err))
		return fmt.Errorf("failed to read %s: %w", payload.FilePath, err)
	}

	docs, err := p.registry.Extract(ctx, data, payload.OriginalName)
	if err != nil {
		p.fail(ctx, payload, start, fmt.Sprintf("extract: %v", err))
		// Extraction failures are not transient; retrying re-reads the
		// same bytes.
		return fmt.Errorf("extraction failed for %s: %v: %w", payload.OriginalName, err, asynq.SkipRetry)
	}

	records, chunkRecords, err := p.buildRecords(ctx, payload, docs)
	if err != nil {
		p.fail(ctx, payload, start, fmt.Sprintf("embed: %v", err))
		return err
	}

	version, err := p.store.AppendIngestion(ctx, payload.SessionID, records, chunkRecords)
	if err != nil {
		p.fail(ctx, payload, start, fmt.Sprintf("persist: %v", err))
		return err
	}

	if err := p.store.UpdateDocumentStatus(ctx, payload.SessionID, payload.DocID, models.StatusCompleted, ""); err != nil {
		logger.Warn("Failed to mark document completed", "doc_id", payload.DocID, "error", err)
	}
	if p.metrics != nil {
		p.metrics.RecordIngestion(time.Since(start).Seconds(), int64(len(chunkRecords)), "ok")
	}

	logger.Info("Queued ingestion completed",
		"session_id", payload.SessionID, "doc_id", payload.DocID,
		"documents", len(docs), "chunks", len(chunkRecords), "index_version", version)
	return nil
}

func (p *IngestProcessor) buildRecords(ctx context.Context, payload IngestPayload, docs []ingest.Document) ([]models.Document, []models.ChunkRecord, error) {
	existing, err := p.store.LoadChunks(ctx, payload.SessionID)
	if err != nil {
		return nil, nil, err
	}
	order := len(existing)

	var (
		records      []models.Document
		chunkRecords []models.ChunkRecord
		texts        []string
	)
	now := time.Now()
	for _, doc := range docs {
		for _, ch := range p.splitter.Split(doc.Text) {
			chunkRecords = append(chunkRecords, models.ChunkRecord{
				SessionID:  payload.SessionID,
				DocumentID: doc.ID,
				ChunkID:    uuid.NewString(),
				Order:      order,
				Text:       ch.Text,
				StartIndex: ch.Start,
				EndIndex:   ch.End,
				Source:     doc.Source,
			})
			texts = append(texts, ch.Text)
			order++
		}
		processed := now
		records = append(records, models.Document{
			SessionID:    payload.SessionID,
			DocID:        doc.ID,
			Filename:     doc.Source,
			OriginalName: payload.OriginalName,
			FilePath:     payload.FilePath,
			FileHash:     payload.FileHash,
			SourceType:   ingest.SourceType(doc.Source),
			Row:          doc.Row,
			Status:       models.StatusCompleted,
			UploadedAt:   now,
			ProcessedAt:  &processed,
			Metadata: models.DocumentMetadata{
				Size:           int64(len(doc.Text)),
				Pages:          doc.Pages,
				CharacterCount: len(doc.Text),
			},
		})
	}

	if len(texts) > 0 {
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, nil, err
		}
		for i, vec := range vectors {
			chunkRecords[i].Vector = vec
		}
	}
	return records, chunkRecords, nil
}

func (p *IngestProcessor) fail(ctx context.Context, payload IngestPayload, start time.Time, msg string) {
	if err := p.store.UpdateDocumentStatus(ctx, payload.SessionID, payload.DocID, models.StatusFailed, msg); err != nil {
		logger.Warn("Failed to mark document failed", "doc_id", payload.DocID, "error", err)
	}
	if p.metrics != nil {
		p.metrics.RecordIngestion(time.Since(start).Seconds(), 0, "error")
	}
}
