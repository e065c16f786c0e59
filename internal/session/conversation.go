package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/vectorstore"
	"pdf-qa-service/models"
)

var tracer = otel.Tracer("pdf-qa-service")

// ErrNotReady is returned when Ask is called before any documents have
// been processed for the session. The caller recovers by loading
// documents first.
var ErrNotReady = errors.New("no document index built for session")

// State of the conversation manager.
type State string

const (
	StateIdle     State = "idle"
	StateReady    State = "ready"
	StateAwaiting State = "awaiting_answer"
)

// Answer is the result of one retrieval-augmented turn.
type Answer struct {
	Text       string
	Retrieved  []vectorstore.Result
	TokensUsed int
}

// ConversationManager owns the ordered turn history of one session and
// issues retrieval-augmented prompts against the session's index. History
// is explicit: every prompt replays the full turn sequence, there is no
// hidden memory in the model client.
//
// Not safe for concurrent use; the owning Session serializes access.
type ConversationManager struct {
	embedder ai.Embedder
	chat     ai.ChatModel
	topK     int

	state State
	index *vectorstore.Index
	turns []models.Turn
}

func NewConversationManager(embedder ai.Embedder, chat ai.ChatModel, topK int) *ConversationManager {
	if topK <= 0 {
		topK = 4
	}
	return &ConversationManager{
		embedder: embedder,
		chat:     chat,
		topK:     topK,
		state:    StateIdle,
	}
}

func (m *ConversationManager) State() State { return m.state }

// SetIndex installs a freshly built index, transitioning to Ready. The
// previous index is discarded wholesale; in-flight searches against it
// finish on their own copy.
func (m *ConversationManager) SetIndex(ix *vectorstore.Index) {
	m.index = ix
	if ix != nil {
		m.state = StateReady
	} else {
		m.state = StateIdle
	}
}

// ResetHistory drops all turns but keeps the index.
func (m *ConversationManager) ResetHistory() {
	m.turns = nil
}

// RestoreHistory replaces the turn sequence with a persisted one, used
// when a session is re-materialized after a restart.
func (m *ConversationManager) RestoreHistory(turns []models.Turn) {
	m.turns = make([]models.Turn, len(turns))
	copy(m.turns, turns)
}

// Clear tears down both index and history, returning to Idle.
func (m *ConversationManager) Clear() {
	m.index = nil
	m.turns = nil
	m.state = StateIdle
}

// History returns a copy of the ordered turn sequence.
func (m *ConversationManager) History() []models.Turn {
	out := make([]models.Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *ConversationManager) TurnCount() int { return len(m.turns) }

func (m *ConversationManager) IndexSize() int {
	if m.index == nil {
		return 0
	}
	return m.index.Len()
}

// Ask answers a question against the session's documents. On success
// exactly two turns (user, assistant) are appended to history. On any
// failure no turns are committed, so history only ever records questions
// that were actually answered.
func (m *ConversationManager) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	if m.index == nil {
		return nil, ErrNotReady
	}

	m.state = StateAwaiting
	defer func() { m.state = StateReady }()

	embedCtx, embedSpan := tracer.Start(ctx, "ask.embed_query")
	queryVec, err := m.embedder.Embed(embedCtx, question)
	if err != nil {
		embedSpan.RecordError(err)
		embedSpan.End()
		if ctx.Err() != nil {
			// The ask deadline expired mid-embedding; surface it as an
			// upstream failure so the caller knows to retry.
			return nil, &ai.UpstreamError{Err: ctx.Err()}
		}
		return nil, err
	}
	embedSpan.End()

	retrieved := m.index.Search(queryVec, m.topK)
	prompt := m.buildPrompt(question, retrieved)

	chatCtx, chatSpan := tracer.Start(ctx, "ask.complete")
	chatSpan.SetAttributes(attribute.Int("ask.retrieved_chunks", len(retrieved)))
	answer, err := m.chat.Complete(chatCtx, prompt)
	if err != nil {
		chatSpan.RecordError(err)
		chatSpan.End()
		return nil, err
	}
	chatSpan.End()

	now := time.Now()
	m.turns = append(m.turns,
		models.Turn{
			SessionID: sessionID,
			Role:      models.RoleUser,
			Content:   question,
			Position:  len(m.turns),
			TokenCost: ai.EstimateTokens(question),
			Timestamp: now,
		},
		models.Turn{
			SessionID: sessionID,
			Role:      models.RoleAssistant,
			Content:   answer,
			Position:  len(m.turns) + 1,
			TokenCost: ai.EstimateTokens(answer),
			Timestamp: now,
		},
	)

	return &Answer{
		Text:       answer,
		Retrieved:  retrieved,
		TokensUsed: ai.EstimateTokens(prompt) + ai.EstimateTokens(answer),
	}, nil
}

// buildPrompt assembles retrieved context plus the full turn history
// around the question.
func (m *ConversationManager) buildPrompt(question string, retrieved []vectorstore.Result) string {
	var prompt strings.Builder

	prompt.WriteString("You are a helpful assistant answering questions about the user's uploaded documents.\n\n")

	if len(retrieved) > 0 {
		prompt.WriteString("Context from uploaded documents:\n\n")
		for i, r := range retrieved {
			prompt.WriteString(fmt.Sprintf("Excerpt %d:\n%s\n\n", i+1, r.Payload.Text))
		}
	}

	if len(m.turns) > 0 {
		prompt.WriteString("Conversation so far:\n")
		for _, turn := range m.turns {
			switch turn.Role {
			case models.RoleUser:
				prompt.WriteString("User: ")
			case models.RoleAssistant:
				prompt.WriteString("Assistant: ")
			}
			prompt.WriteString(turn.Content)
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Based on the above context and conversation, answer the following question:\n\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\nProvide a helpful and accurate response based on the provided context. If the context doesn't contain relevant information, say so.")

	return prompt.String()
}
