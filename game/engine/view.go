package engine

import "fmt"

// View is the rendering collaborator driven by the engine. Implementations
// must not call back into the Game: every method is invoked while the game
// holds its lock.
type View interface {
	// SetCellHighlight turns a cell's mole highlight on or off
	SetCellHighlight(pos Position, on bool)

	// ShowTimer displays the remaining countdown in seconds
	ShowTimer(seconds float64)

	// ShowScore displays the current score
	ShowScore(score int)

	// SetControlLabel updates the start/reset button label
	SetControlLabel(label string)
}

// FormatTimer renders seconds with millisecond precision
func FormatTimer(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds)
}

// NopView discards all rendering
type NopView struct{}

func (NopView) SetCellHighlight(Position, bool) {}
func (NopView) ShowTimer(float64)               {}
func (NopView) ShowScore(int)                   {}
func (NopView) SetControlLabel(string)          {}
