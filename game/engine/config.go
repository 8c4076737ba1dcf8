package engine

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid game config")

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	// Validate grid size
	if config.Rows < MinGridSize || config.Rows > MaxGridSize {
		return fmt.Errorf("%w: rows must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Rows)
	}
	if config.Columns < MinGridSize || config.Columns > MaxGridSize {
		return fmt.Errorf("%w: columns must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Columns)
	}

	// Mole generation samples free cells until it finds one, so the grid
	// must always keep at least one cell free.
	if config.SimultaneousMoles < 1 {
		return fmt.Errorf("%w: simultaneous_moles must be at least 1, got %d", ErrInvalidConfig, config.SimultaneousMoles)
	}
	if config.SimultaneousMoles >= config.Capacity() {
		return fmt.Errorf("%w: simultaneous_moles must be less than rows*columns (%d), got %d",
			ErrInvalidConfig, config.Capacity(), config.SimultaneousMoles)
	}

	// Validate durations
	if !positiveFinite(config.MoleVisibleSeconds) {
		return fmt.Errorf("%w: mole_visible_seconds must be positive, got %v", ErrInvalidConfig, config.MoleVisibleSeconds)
	}
	if !positiveFinite(config.TimerSeconds) || config.TimerSeconds > MaxTimerSeconds {
		return fmt.Errorf("%w: timer_seconds must be in (0, %d], got %v", ErrInvalidConfig, MaxTimerSeconds, config.TimerSeconds)
	}
	if config.TickMillis < 0 || (config.TickMillis > 0 && config.TickInterval() < MinTickInterval) {
		return fmt.Errorf("%w: tick_millis must be 0 (default) or at least %d, got %d",
			ErrInvalidConfig, MinTickInterval.Milliseconds(), config.TickMillis)
	}
	if config.VisibleDuration() < MinTickInterval {
		return fmt.Errorf("%w: mole_visible_seconds must be at least %v", ErrInvalidConfig, MinTickInterval)
	}

	// Validate pixel dimensions (0 means default)
	if config.GridWidth < 0 || config.GridHeight < 0 {
		return fmt.Errorf("%w: grid_width and grid_height must not be negative", ErrInvalidConfig)
	}

	return nil
}

// DefaultGameConfig returns the classic 4x6 game
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:               "classic",
		Description:        "Classic 4x6 grid, five moles every two seconds, six second round",
		Rows:               4,
		Columns:            6,
		SimultaneousMoles:  5,
		MoleVisibleSeconds: 2,
		TimerSeconds:       DefaultTimerLength,
		GridWidth:          DefaultGridWidth,
		GridHeight:         DefaultGridHeight,
		TickMillis:         DefaultTickMillis,
	}
}

func positiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
