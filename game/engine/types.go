package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the session controller's lifecycle state
type State int

const (
	Idle State = iota
	Running
)

const (
	// Control labels shown on the start/reset button
	StartLabel = "Start the game!"
	ResetLabel = "Reset the game!"

	// Validation constants
	MinGridSize        = 1
	MaxGridSize        = 32
	MaxTimerSeconds    = 3600
	MinTickInterval    = 10 * time.Millisecond
	DefaultTickMillis  = 66
	DefaultGridWidth   = 800
	DefaultGridHeight  = 300
	DefaultTimerLength = 6
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalJSON encodes the state as its name
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	default:
		return fmt.Errorf("unknown state %q", name)
	}
	return nil
}

// Position is a grid cell coordinate
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// InBounds reports whether p addresses a cell of a rows x columns grid
func (p Position) InBounds(rows, columns int) bool {
	return p.Row >= 0 && p.Row < rows && p.Column >= 0 && p.Column < columns
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// GameConfig represents the game configuration loaded from JSON or HCL
type GameConfig struct {
	Name               string  `json:"name" hcl:"name"`
	Description        string  `json:"description" hcl:"description,optional"`
	Rows               int     `json:"rows" hcl:"rows"`
	Columns            int     `json:"columns" hcl:"columns"`
	SimultaneousMoles  int     `json:"simultaneous_moles" hcl:"simultaneous_moles"`
	MoleVisibleSeconds float64 `json:"mole_visible_seconds" hcl:"mole_visible_seconds"`
	TimerSeconds       float64 `json:"timer_seconds" hcl:"timer_seconds"`
	GridWidth          int     `json:"grid_width,omitempty" hcl:"grid_width,optional"`
	GridHeight         int     `json:"grid_height,omitempty" hcl:"grid_height,optional"`
	TickMillis         int     `json:"tick_millis,omitempty" hcl:"tick_millis,optional"`
}

// Capacity returns the number of cells in the grid
func (c *GameConfig) Capacity() int {
	return c.Rows * c.Columns
}

// TimerDuration returns the countdown length
func (c *GameConfig) TimerDuration() time.Duration {
	return secondsToDuration(c.TimerSeconds)
}

// VisibleDuration returns the spawn cycle period
func (c *GameConfig) VisibleDuration() time.Duration {
	return secondsToDuration(c.MoleVisibleSeconds)
}

// TickInterval returns the countdown tick period, defaulting to 66ms
func (c *GameConfig) TickInterval() time.Duration {
	if c.TickMillis <= 0 {
		return DefaultTickMillis * time.Millisecond
	}
	return time.Duration(c.TickMillis) * time.Millisecond
}

// CellSize returns the pixel size of one cell for the renderer
func (c *GameConfig) CellSize() (width, height float64) {
	w, h := c.GridWidth, c.GridHeight
	if w <= 0 {
		w = DefaultGridWidth
	}
	if h <= 0 {
		h = DefaultGridHeight
	}
	return float64(w) / float64(c.Columns), float64(h) / float64(c.Rows)
}

// GameState is a point-in-time view of a game, safe to serialize
type GameState struct {
	State            State      `json:"state"`
	Score            int        `json:"score"`
	LastScore        int        `json:"last_score"`
	RemainingSeconds float64    `json:"remaining_seconds"`
	Timer            string     `json:"timer"`
	ControlLabel     string     `json:"control_label"`
	ActiveMoles      []Position `json:"active_moles"`
	Rows             int        `json:"rows"`
	Columns          int        `json:"columns"`
	CellWidth        float64    `json:"cell_width"`
	CellHeight       float64    `json:"cell_height"`
	ConfigName       string     `json:"config_name"`

	// Counters across the lifetime of this game instance
	Rounds    int `json:"rounds"`
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	BestScore int `json:"best_score"`
}

// IsActive reports whether p is one of the snapshot's active moles
func (s *GameState) IsActive(p Position) bool {
	for _, m := range s.ActiveMoles {
		if m == p {
			return true
		}
	}
	return false
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
