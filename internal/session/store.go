package session

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/models"
	"pdf-qa-service/utils"
)

// Store persists sessions, documents, chunks and turns in MongoDB. It is
// the handoff point between the API process and the ingestion worker:
// the worker appends chunks and bumps index_version, and the API rebuilds
// its in-memory index when it sees the version move.
type Store struct {
	db                  *mongo.Database
	compression         utils.CompressionAlgorithm
	compressionMinBytes int
}

func NewStore(client *mongo.Client, cfg *config.Config) *Store {
	return &Store{
		db:                  client.Database(cfg.DBName),
		compression:         utils.CompressionAlgorithm(cfg.CompressionAlgorithm),
		compressionMinBytes: cfg.CompressionMinBytes,
	}
}

func (s *Store) sessions() *mongo.Collection  { return s.db.Collection("sessions") }
func (s *Store) documents() *mongo.Collection { return s.db.Collection("documents") }
func (s *Store) chunks() *mongo.Collection    { return s.db.Collection("chunks") }
func (s *Store) turns() *mongo.Collection     { return s.db.Collection("turns") }

// CreateSession registers a new session record at index version 0.
func (s *Store) CreateSession(ctx context.Context, sessionID string) error {
	now := time.Now()
	_, err := s.sessions().InsertOne(ctx, models.SessionRecord{
		SessionID:    sessionID,
		IndexVersion: 0,
		CreatedAt:    now,
		LastActive:   now,
	})
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}
	return nil
}

// TouchSession refreshes the session's last_active timestamp.
func (s *Store) TouchSession(ctx context.Context, sessionID string) {
	_, err := s.sessions().UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"last_active": time.Now()}},
	)
	if err != nil {
		logger.Warn("Failed to touch session", "session_id", sessionID, "error", err)
	}
}

// IndexVersion returns the stored index version for the session, or 0 if
// the record does not exist.
func (s *Store) IndexVersion(ctx context.Context, sessionID string) (int64, error) {
	var rec models.SessionRecord
	err := s.sessions().FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session record: %w", err)
	}
	return rec.IndexVersion, nil
}

// ReplaceIngestion atomically (per collection) swaps the session's corpus:
// previous documents, chunks and turns are dropped, the new set is
// inserted, and index_version is bumped. Turns go too because the stored
// history referred to documents that no longer back the index. Returns the
// new version.
func (s *Store) ReplaceIngestion(ctx context.Context, sessionID string, docs []models.Document, chunks []models.ChunkRecord) (int64, error) {
	if _, err := s.documents().DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return 0, fmt.Errorf("failed to clear previous documents: %w", err)
	}
	if _, err := s.chunks().DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks: %w", err)
	}
	if _, err := s.turns().DeleteMany(ctx, bson.M{"session_id": sessionID}); err != nil {
		return 0, fmt.Errorf("failed to clear previous turns: %w", err)
	}
	if err := s.insertIngestion(ctx, docs, chunks); err != nil {
		return 0, err
	}
	return s.bumpIndexVersion(ctx, sessionID)
}

// AppendIngestion adds documents and chunks without discarding the
// existing corpus. Used by the async worker for large uploads.
func (s *Store) AppendIngestion(ctx context.Context, sessionID string, docs []models.Document, chunks []models.ChunkRecord) (int64, error) {
	if err := s.insertIngestion(ctx, docs, chunks); err != nil {
		return 0, err
	}
	return s.bumpIndexVersion(ctx, sessionID)
}

func (s *Store) insertIngestion(ctx context.Context, docs []models.Document, chunks []models.ChunkRecord) error {
	if len(docs) > 0 {
		payload := make([]interface{}, len(docs))
		for i, d := range docs {
			payload[i] = d
		}
		if _, err := s.documents().InsertMany(ctx, payload); err != nil {
			return fmt.Errorf("failed to insert documents: %w", err)
		}
	}
	if len(chunks) > 0 {
		payload := make([]interface{}, len(chunks))
		for i, ch := range chunks {
			compressed, err := s.maybeCompress(ch)
			if err != nil {
				return err
			}
			payload[i] = compressed
		}
		if _, err := s.chunks().InsertMany(ctx, payload); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}
	return nil
}

func (s *Store) bumpIndexVersion(ctx context.Context, sessionID string) (int64, error) {
	var rec models.SessionRecord
	err := s.sessions().FindOneAndUpdate(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$inc": bson.M{"index_version": 1},
			"$set": bson.M{"last_active": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if err != nil {
		return 0, fmt.Errorf("failed to bump index version: %w", err)
	}
	return rec.IndexVersion, nil
}

func (s *Store) maybeCompress(ch models.ChunkRecord) (models.ChunkRecord, error) {
	if s.compression == utils.CompressionNone || len(ch.Text) < s.compressionMinBytes {
		return ch, nil
	}
	data, err := utils.CompressText(ch.Text, s.compression)
	if err != nil {
		return ch, fmt.Errorf("failed to compress chunk %s: %w", ch.ChunkID, err)
	}
	ch.Text = ""
	ch.TextData = data
	ch.Compressed = true
	ch.Compression = string(s.compression)
	return ch, nil
}

// LoadChunks returns the session's chunks in ingestion order with text
// decompressed, ready for index rebuilding.
func (s *Store) LoadChunks(ctx context.Context, sessionID string) ([]models.ChunkRecord, error) {
	cursor, err := s.chunks().Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.ChunkRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}

	for i := range records {
		if !records[i].Compressed {
			continue
		}
		text, err := utils.DecompressText(records[i].TextData, utils.CompressionAlgorithm(records[i].Compression))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress chunk %s: %w", records[i].ChunkID, err)
		}
		records[i].Text = text
		records[i].TextData = nil
		records[i].Compressed = false
		records[i].Compression = ""
	}
	return records, nil
}

// InsertDocument records a single document without touching the index
// version. Used for pending records of queued uploads.
func (s *Store) InsertDocument(ctx context.Context, doc models.Document) error {
	if _, err := s.documents().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert document record: %w", err)
	}
	return nil
}

// FindDocumentByHash returns the session's document with the given file
// hash, or nil if none exists. Backed by the (session_id, file_hash)
// index; used to reject re-uploads of content already in the corpus.
func (s *Store) FindDocumentByHash(ctx context.Context, sessionID, hash string) (*models.Document, error) {
	if hash == "" {
		return nil, nil
	}
	var doc models.Document
	err := s.documents().FindOne(ctx,
		bson.M{"session_id": sessionID, "file_hash": hash},
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up document by hash: %w", err)
	}
	return &doc, nil
}

// CountDocuments returns the number of document records for the session.
func (s *Store) CountDocuments(ctx context.Context, sessionID string) (int64, error) {
	return s.documents().CountDocuments(ctx, bson.M{"session_id": sessionID})
}

// ListDocuments returns the session's document records, newest first.
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]models.Document, error) {
	cursor, err := s.documents().Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// UpdateDocumentStatus moves a document record through the processing
// lifecycle. errMsg is stored only for failed documents.
func (s *Store) UpdateDocumentStatus(ctx context.Context, sessionID, docID, status, errMsg string) error {
	update := bson.M{"status": status}
	if status == models.StatusCompleted || status == models.StatusFailed {
		now := time.Now()
		update["processed_at"] = now
	}
	if errMsg != "" {
		update["error_message"] = errMsg
	}
	_, err := s.documents().UpdateOne(ctx,
		bson.M{"session_id": sessionID, "doc_id": docID},
		bson.M{"$set": update},
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// AppendTurns persists committed conversation turns.
func (s *Store) AppendTurns(ctx context.Context, turns []models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	payload := make([]interface{}, len(turns))
	for i, t := range turns {
		payload[i] = t
	}
	if _, err := s.turns().InsertMany(ctx, payload); err != nil {
		return fmt.Errorf("failed to insert turns: %w", err)
	}
	return nil
}

// LoadTurns returns the session's turn history in position order.
func (s *Store) LoadTurns(ctx context.Context, sessionID string) ([]models.Turn, error) {
	cursor, err := s.turns().Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []models.Turn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode turns: %w", err)
	}
	return turns, nil
}

// ClearSession wipes the session's corpus and history but keeps the
// session record alive, resetting index_version to 0.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}
	if _, err := s.documents().DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if _, err := s.chunks().DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := s.turns().DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	_, err := s.sessions().UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"index_version": int64(0), "last_active": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to reset session record: %w", err)
	}
	return nil
}

// DeleteSession removes the session record and everything attached to it.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}
	for _, coll := range []*mongo.Collection{s.documents(), s.chunks(), s.turns(), s.sessions()} {
		if _, err := coll.DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("failed to delete session data from %s: %w", coll.Name(), err)
		}
	}
	return nil
}
