package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/molegame/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	now      func() time.Time
	mu       sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		now:      time.Now,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' %w. Available configs: %v", configName, ErrNotFound, configIDs)
				}
				return nil, fmt.Errorf("config '%s' %w. Use /api/configs to list available configurations", configName, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Prefer the requested identifier, otherwise look it up by display name
	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configID, // Return the config_id, not the display name
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.CreatedAt,
		GameState:      session.Game.Snapshot(),
		GameConfig:     session.Config,
	}, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, accessed, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	return s.sessionInfo(session, accessed), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, sess.LastAccessedAt))
	}

	return result, nil
}

// DeleteSession tears down and removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// Toggle presses the start/reset control of a session
func (s *gameServiceImpl) Toggle(ctx context.Context, sessionID string) (*ToggleResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Game.Start()

	event := GameEvent{Timestamp: s.now()}
	var message string
	if state == engine.Running {
		event.Type = EventStart
		message = fmt.Sprintf("Game started. Hit as many moles as you can in %s seconds!",
			engine.FormatTimer(sess.Config.TimerSeconds))
	} else {
		event.Type = EventStop
		message = "Game reset. Press start to play again."
	}
	event.Message = message

	return &ToggleResult{
		State:     state,
		GameState: sess.Game.Snapshot(),
		Message:   message,
		Events:    []GameEvent{event},
	}, nil
}

// Hit clicks the cell at row, column. Clicking an empty or out-of-grid cell
// is a miss, never an error.
func (s *gameServiceImpl) Hit(ctx context.Context, sessionID string, row, column int) (*HitResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	pos := engine.Position{Row: row, Column: column}
	hit := sess.Game.Hit(pos)
	state := sess.Game.Snapshot()

	event := GameEvent{Timestamp: s.now(), Position: &pos}
	var message string
	switch {
	case hit:
		event.Type = EventHit
		message = fmt.Sprintf("Hit a mole at %s! Score: %d", pos, state.Score)
	case !pos.InBounds(state.Rows, state.Columns):
		event.Type = EventMiss
		message = fmt.Sprintf("%s is outside the %dx%d grid", pos, state.Rows, state.Columns)
	default:
		event.Type = EventMiss
		message = fmt.Sprintf("No mole at %s", pos)
	}
	event.Message = message

	return &HitResult{
		Hit:       hit,
		Position:  pos,
		Score:     state.Score,
		GameState: state,
		Message:   message,
		Events:    []GameEvent{event},
	}, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Game.Snapshot(), nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// lookup fetches a session and marks it accessed
func (s *gameServiceImpl) lookup(sessionID string) (*Session, error) {
	sess, _, err := s.touch(sessionID)
	return sess, err
}

// touch is lookup that also returns the new access time
func (s *gameServiceImpl) touch(sessionID string) (*Session, time.Time, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	accessed, err := s.sessions.UpdateLastAccessed(sessionID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, accessed, nil
}

// sessionInfo never reads sess.LastAccessedAt, which the manager may be
// updating concurrently.
func (s *gameServiceImpl) sessionInfo(sess *Session, lastAccessed time.Time) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name), // Return config_id consistently
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: lastAccessed,
		GameState:      sess.Game.Snapshot(),
		GameConfig:     sess.Config,
	}
}
