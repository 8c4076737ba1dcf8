package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/molegame/game/clock"
	"github.com/wricardo/mcp-training/molegame/game/engine"
	"github.com/wricardo/mcp-training/molegame/game/service"
)

var (
	ErrSessionNotFound      = fmt.Errorf("session %w", service.ErrNotFound)
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// maxGenerateAttempts bounds ID generation when the 4-hex space is crowded
const maxGenerateAttempts = 32

// ViewFactory builds the renderer for a new session
type ViewFactory func(sessionID string) engine.View

// statePublisher is implemented by views that also want full snapshots on
// every Idle/Running transition.
type statePublisher interface {
	PublishState(state *engine.GameState)
}

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	clock    clock.Clock
	newView  ViewFactory
	gameOpts []engine.Option
	mu       sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock every session schedules on. Defaults to the real clock.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clock = clk }
}

// WithViewFactory sets how a session's renderer is built. Defaults to engine.NopView.
func WithViewFactory(f ViewFactory) Option {
	return func(m *Manager) { m.newView = f }
}

// WithGameOptions passes extra options to every engine.NewGame call
func WithGameOptions(opts ...engine.Option) Option {
	return func(m *Manager) { m.gameOpts = append(m.gameOpts, opts...) }
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		clock:    clock.Real(),
		newView:  func(string) engine.View { return engine.NopView{} },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID and configuration. An empty
// ID is replaced by a random 4-character one.
func (m *Manager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		generated, err := m.uniqueSessionID()
		if err != nil {
			return nil, err
		}
		id = generated
	} else if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/ ") {
		return nil, ErrInvalidSessionID
	}

	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	view := m.newView(id)
	opts := append([]engine.Option{}, m.gameOpts...)
	if sp, ok := view.(statePublisher); ok {
		opts = append(opts, engine.WithStateHook(sp.PublishState))
	}

	game, err := engine.NewGame(config, m.clock, view, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	now := m.clock.Now()
	session := &service.Session{
		ID:             id,
		Game:           game,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[strings.ToLower(id)] = session

	log.Info().Str("session", id).Str("config", config.Name).Msg("Session created")
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	// Try to get existing session first
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	// Create new session if not found
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config)
	}

	return nil, err
}

// List returns copies of all active sessions. The games are shared; the
// access times are the values at the time of the call.
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		snapshot := *session
		result = append(result, &snapshot)
	}

	return result
}

// Delete tears down a session's game and removes it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	if exists {
		delete(m.sessions, lowerID)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}

	session.Game.Close()
	log.Info().Str("session", session.ID).Msg("Session deleted")
	return nil
}

// UpdateLastAccessed marks a session accessed now and returns the new time.
// LastAccessedAt is only read or written under the manager lock.
func (m *Manager) UpdateLastAccessed(id string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return time.Time{}, ErrSessionNotFound
	}

	session.LastAccessedAt = m.clock.Now()
	return session.LastAccessedAt, nil
}

// CleanupExpiredSessions tears down sessions that haven't been accessed in
// the given duration and returns how many were removed.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := m.clock.Now().Add(-maxAge)
	var expired []*service.Session

	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Game.Close()
		log.Debug().Str("session", session.ID).Msg("Session expired")
	}

	return len(expired)
}

// Close tears down every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Game.Close()
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// uniqueSessionID returns an unused random ID. Caller holds m.mu.
func (m *Manager) uniqueSessionID() (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		id := m.generateSessionID()
		if !m.sessionExists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no free ID after %d attempts", ErrSessionAlreadyExists, maxGenerateAttempts)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
