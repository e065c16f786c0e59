package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document represents one ingested source document (a PDF file, a CSV/XLSX
// row, an HTML page) tied to a session.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    string             `bson:"session_id" json:"session_id"`
	DocID        string             `bson:"doc_id" json:"doc_id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name,omitempty" json:"original_name,omitempty"`
	FilePath     string             `bson:"file_path,omitempty" json:"-"`
	FileHash     string             `bson:"file_hash,omitempty" json:"file_hash,omitempty"`
	SourceType   string             `bson:"source_type" json:"source_type"` // pdf, csv, xlsx, html, txt
	Row          int                `bson:"row,omitempty" json:"row,omitempty"`
	Status       string             `bson:"status" json:"status"` // pending, processing, completed, failed
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt  *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	Metadata     DocumentMetadata   `bson:"metadata" json:"metadata"`
}

// DocumentMetadata contains extraction statistics.
type DocumentMetadata struct {
	Size           int64         `bson:"size" json:"size"`
	Pages          int           `bson:"pages,omitempty" json:"pages,omitempty"`
	Rows           int           `bson:"rows,omitempty" json:"rows,omitempty"`
	ProcessingTime time.Duration `bson:"processing_time" json:"processing_time"`
	WordCount      int           `bson:"word_count" json:"word_count"`
	CharacterCount int           `bson:"character_count" json:"character_count"`
}

// ChunkRecord is a denormalized chunk index entry. Keeping chunks in their
// own collection lets a session's vector index be rebuilt after a restart
// and lets the ingestion worker hand completed work to the API process.
type ChunkRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID   string             `bson:"session_id" json:"session_id"`
	DocumentID  string             `bson:"document_id" json:"document_id"`
	ChunkID     string             `bson:"chunk_id" json:"chunk_id"`
	Order       int                `bson:"order" json:"order"`
	Text        string             `bson:"text,omitempty" json:"text"`
	TextData    []byte             `bson:"text_data,omitempty" json:"-"`
	Compressed  bool               `bson:"compressed,omitempty" json:"-"`
	Compression string             `bson:"compression,omitempty" json:"-"`
	StartIndex  int                `bson:"start_index" json:"start_index"`
	EndIndex    int                `bson:"end_index" json:"end_index"`
	Source      string             `bson:"source,omitempty" json:"source,omitempty"`
	Vector      []float32          `bson:"vector,omitempty" json:"-"`
}

// SessionRecord is the persisted lifecycle state of a session.
type SessionRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    string             `bson:"session_id" json:"session_id"`
	IndexVersion int64              `bson:"index_version" json:"index_version"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastActive   time.Time          `bson:"last_active" json:"last_active"`
}

// Document processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
