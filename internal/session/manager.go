package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"pdf-qa-service/internal/ai"
	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/logger"
)

// Manager holds the live sessions of this API process and sweeps out the
// ones that have gone idle past the configured TTL.
type Manager struct {
	cfg      *config.Config
	embedder ai.Embedder
	chat     ai.ChatModel
	store    *Store

	mu       sync.RWMutex
	sessions map[string]*Session

	scheduler *gocron.Scheduler
}

func NewManager(cfg *config.Config, embedder ai.Embedder, chat ai.ChatModel, store *Store) *Manager {
	return &Manager{
		cfg:      cfg,
		embedder: embedder,
		chat:     chat,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session, registers it in memory and persists its
// record.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	sess, err := New(m.cfg, m.embedder, m.chat, m.store)
	if err != nil {
		return nil, err
	}
	if err := m.store.CreateSession(ctx, sess.ID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	logger.Info("Session created", "session_id", sess.ID)
	return sess, nil
}

// Get returns the live session, or false if this process does not hold it.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// Resume re-materializes a session whose record still exists in the store
// but whose in-memory state was lost, typically after a restart. The
// conversation history is restored from the store; the index is lazily
// rebuilt on the first ask.
func (m *Manager) Resume(ctx context.Context, sessionID string) (*Session, error) {
	version, err := m.store.IndexVersion(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess, err := New(m.cfg, m.embedder, m.chat, m.store)
	if err != nil {
		return nil, err
	}
	sess.ID = sessionID
	// indexVersion starts at 0; if the stored corpus is ahead, the first
	// ask rebuilds the index from the stored chunks.

	turns, err := m.store.LoadTurns(ctx, sessionID)
	if err != nil {
		logger.Warn("Failed to restore turn history", "session_id", sessionID, "error", err)
	} else if len(turns) > 0 {
		sess.conv.RestoreHistory(turns)
	}

	m.mu.Lock()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	logger.Info("Session resumed",
		"session_id", sessionID, "index_version", version, "turns", len(turns))
	return sess, nil
}

// GetOrResume returns the live session, falling back to resuming from the
// store when the record exists but the process lost its in-memory state.
func (m *Manager) GetOrResume(ctx context.Context, sessionID string) (*Session, error) {
	if sess, ok := m.Get(sessionID); ok {
		return sess, nil
	}
	return m.Resume(ctx, sessionID)
}

// Remove drops the session from memory and deletes its stored data.
func (m *Manager) Remove(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return m.store.DeleteSession(ctx, sessionID)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper launches the periodic job that evicts sessions idle for
// longer than the session TTL.
func (m *Manager) StartSweeper() {
	m.scheduler = gocron.NewScheduler(time.UTC)
	m.scheduler.Every(m.cfg.SessionSweepEvery).Do(func() {
		m.sweep()
	})
	m.scheduler.StartAsync()
	logger.Info("Session sweeper started",
		"interval", m.cfg.SessionSweepEvery.String(), "ttl", m.cfg.SessionTTL.String())
}

// StopSweeper halts the eviction job.
func (m *Manager) StopSweeper() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.cfg.SessionTTL)

	m.mu.Lock()
	var expired []string
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, id := range expired {
		if err := m.store.DeleteSession(ctx, id); err != nil {
			logger.Warn("Failed to delete expired session data", "session_id", id, "error", err)
		}
	}
	logger.Info("Expired sessions swept", "count", len(expired))
}
