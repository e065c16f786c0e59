package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Turn is one user or assistant message in a session's conversation.
// Positions are assigned in append order and never reused.
type Turn struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID string             `bson:"session_id" json:"session_id"`
	Role      string             `bson:"role" json:"role"` // "user" or "assistant"
	Content   string             `bson:"content" json:"content"`
	Position  int                `bson:"position" json:"position"`
	TokenCost int                `bson:"token_cost,omitempty" json:"token_cost,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type AskRequest struct {
	Question string `json:"question" binding:"required,min=1,max=2000"`
}

type AskResponse struct {
	Answer     string      `json:"answer"`
	TokensUsed int         `json:"tokens_used"`
	Sources    []SourceRef `json:"sources,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	LatencyMS  int         `json:"latency_ms"`
}

// SourceRef points an answer back at the retrieved chunks it was
// conditioned on.
type SourceRef struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source,omitempty"`
	Score      float64 `json:"score"`
}

type HistoryResponse struct {
	SessionID   string    `json:"session_id"`
	Turns       []Turn    `json:"turns"`
	TotalTokens int       `json:"total_tokens"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// SessionInfo is the status snapshot returned by the session endpoints.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	State        string    `json:"state"` // idle, ready, awaiting_answer
	Documents    int       `json:"documents"`
	Chunks       int       `json:"chunks"`
	Turns        int       `json:"turns"`
	IndexVersion int64     `json:"index_version"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}
