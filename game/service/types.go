package service

import (
	"time"

	"github.com/wricardo/mcp-training/molegame/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ToggleResult contains the result of pressing the start/reset control
type ToggleResult struct {
	State     engine.State      `json:"state"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// HitResult contains the result of clicking a cell
type HitResult struct {
	Hit       bool              `json:"hit"`
	Position  engine.Position   `json:"position"`
	Score     int               `json:"score"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// Game event types
const (
	EventStart = "start"
	EventStop  = "stop"
	EventHit   = "hit"
	EventMiss  = "miss"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "start", "stop", "hit", "miss"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Position  *engine.Position `json:"position,omitempty"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename          string  `json:"filename"`
	ConfigID          string  `json:"config_id"` // The identifier to use for session creation
	Format            string  `json:"format"`    // "json" or "hcl"
	Name              string  `json:"name"`      // Display name
	Description       string  `json:"description"`
	Rows              int     `json:"rows"`
	Columns           int     `json:"columns"`
	SimultaneousMoles int     `json:"simultaneous_moles"`
	TimerSeconds      float64 `json:"timer_seconds"`
}
