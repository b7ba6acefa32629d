package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/trivia-journey/game/engine"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
	ErrPersistenceCorrupt   = errors.New("persisted session is corrupt")
	ErrSessionClosed        = errors.New("session closed")
)

// DefaultDifficulty is used when a session is created without one
const DefaultDifficulty = "normal"

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*Session
	catalog  *engine.Catalog
	opts     Options
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewManager creates a session manager sharing catalog across its sessions.
// opts is handed to every session it creates or restores.
func NewManager(catalog *engine.Catalog, opts Options) *Manager {
	if catalog == nil {
		catalog = engine.EmptyCatalog()
	}
	opts = opts.withDefaults()
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  catalog,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Catalog returns the shared question bank
func (m *Manager) Catalog() *engine.Catalog {
	return m.catalog
}

func (m *Manager) tuning(name string) (*engine.Tuning, error) {
	if name == "" {
		name = DefaultDifficulty
	}
	if m.opts.Tunings == nil {
		if name == DefaultDifficulty {
			return engine.DefaultTuning(), nil
		}
		return nil, fmt.Errorf("unknown difficulty %q", name)
	}
	return m.opts.Tunings.Tuning(name)
}

// Create starts a new session. An empty id gets a generated one.
func (m *Manager) Create(id, difficulty string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	tuning, err := m.tuning(difficulty)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}
	if m.opts.Persistence != nil && m.opts.Persistence.Exists(id) {
		return nil, ErrSessionAlreadyExists
	}

	sess, err := NewSession(id, nil, m.catalog, tuning, m.opts)
	if err != nil {
		return nil, err
	}
	m.sessions[strings.ToLower(id)] = sess

	if m.opts.Persistence != nil {
		if err := m.opts.Persistence.Save(sess.Snapshot()); err != nil {
			m.logger.Warn("failed to persist session", "session_id", id, "error", err)
		}
	}
	m.logger.Info("session created", "session_id", id, "difficulty", tuning.Name)

	return sess, nil
}

// Get retrieves a session by ID (case-insensitive), loading it from
// persistence when it is not in memory. A corrupt snapshot is replaced by a
// fresh run under the same ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if exists {
		return sess, nil
	}

	if m.opts.Persistence == nil || !validID(id) {
		return nil, ErrSessionNotFound
	}

	sess, err := m.restore(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[strings.ToLower(id)]; ok {
		sess.Close()
		return existing, nil
	}
	m.sessions[strings.ToLower(id)] = sess
	return sess, nil
}

func (m *Manager) restore(id string) (*Session, error) {
	snap, err := m.opts.Persistence.Load(id)
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionNotFound):
		return nil, ErrSessionNotFound
	case errors.Is(err, ErrPersistenceCorrupt):
		m.logger.Warn("discarding corrupt session snapshot", "session_id", id, "error", err)
		return m.fresh(id)
	default:
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	tuning, err := m.tuning(snap.State.Difficulty)
	if err != nil {
		m.logger.Warn("unknown difficulty in snapshot, using default", "session_id", id, "difficulty", snap.State.Difficulty, "error", err)
		if tuning, err = m.tuning(DefaultDifficulty); err != nil {
			tuning = engine.DefaultTuning()
		}
	}

	sess, err := NewSession(id, snap.State, m.catalog, tuning, m.opts)
	if err != nil {
		return nil, err
	}
	if !snap.CreatedAt.IsZero() {
		sess.CreatedAt = snap.CreatedAt
	}
	if !snap.LastAccessedAt.IsZero() {
		sess.lastAccessed = snap.LastAccessedAt
	}
	return sess, nil
}

func (m *Manager) fresh(id string) (*Session, error) {
	tuning, err := m.tuning(DefaultDifficulty)
	if err != nil {
		tuning = engine.DefaultTuning()
	}
	sess, err := NewSession(id, nil, m.catalog, tuning, m.opts)
	if err != nil {
		return nil, err
	}
	if err := m.opts.Persistence.Save(sess.Snapshot()); err != nil {
		m.logger.Warn("failed to persist session", "session_id", id, "error", err)
	}
	return sess, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, difficulty string) (*Session, error) {
	sess, err := m.Get(id)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, difficulty)
	}

	return nil, err
}

// List returns all in-memory sessions ordered by creation time
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

// Delete closes a session and removes it from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	sess, inMemory := m.sessions[lowerID]
	if inMemory {
		sess.Close()
		delete(m.sessions, lowerID)
	}

	if m.opts.Persistence != nil && m.opts.Persistence.Exists(id) {
		if err := m.opts.Persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory closes a session and evicts it, keeping its snapshot
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	sess, exists := m.sessions[lowerID]
	if !exists {
		return ErrSessionNotFound
	}
	sess.Close()
	delete(m.sessions, lowerID)
	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.opts.Persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.opts.Persistence.Save(sess.Snapshot())
}

// CleanupExpiredSessions evicts sessions that haven't been accessed within
// maxAge. Their snapshots stay in persistence.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.opts.Now().Add(-maxAge)
	removed := 0

	for key, sess := range m.sessions {
		if !sess.LastAccessedAt().Before(cutoff) {
			continue
		}
		if m.opts.Persistence != nil {
			if err := m.opts.Persistence.Save(sess.Snapshot()); err != nil {
				m.logger.Warn("failed to persist expiring session", "session_id", sess.ID, "error", err)
			}
		}
		sess.Close()
		delete(m.sessions, key)
		removed++
	}

	return removed
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.opts.Persistence == nil {
		return nil
	}

	sessionIDs, err := m.opts.Persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loadedCount := 0
	for _, id := range sessionIDs {
		m.mu.RLock()
		_, exists := m.sessions[strings.ToLower(id)]
		m.mu.RUnlock()
		if exists {
			continue
		}

		if _, err := m.Get(id); err != nil {
			m.logger.Warn("failed to load persisted session", "session_id", id, "error", err)
			continue
		}
		loadedCount++
	}

	if loadedCount > 0 {
		m.logger.Info("loaded persisted sessions", "count", loadedCount)
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.opts.Persistence == nil {
		return nil
	}

	errorCount := 0
	for _, sess := range m.List() {
		if err := m.opts.Persistence.Save(sess.Snapshot()); err != nil {
			m.logger.Warn("failed to save session", "session_id", sess.ID, "error", err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// Close saves and closes every session
func (m *Manager) Close() error {
	err := m.SaveAllSessions()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, sess := range m.sessions {
		sess.Close()
		delete(m.sessions, key)
	}
	return err
}
