package service

import "github.com/wricardo/mcp-training/molegame/game/engine"

// View event names published to session subscribers
const (
	ViewEventCell  = "cell"
	ViewEventTimer = "timer"
	ViewEventScore = "score"
	ViewEventLabel = "label"
	ViewEventState = "state"
)

// Publisher fans a named event out to everyone watching a session.
// Publish must not block: it is called with the game locked.
type Publisher interface {
	Publish(sessionID, event string, data interface{})
}

// CellEvent toggles one cell's highlight
type CellEvent struct {
	Row    int  `json:"row"`
	Column int  `json:"column"`
	Active bool `json:"active"`
}

// TimerEvent carries the remaining time and its display text
type TimerEvent struct {
	Seconds float64 `json:"seconds"`
	Display string  `json:"display"`
}

// ScoreEvent carries the displayed score
type ScoreEvent struct {
	Score int `json:"score"`
}

// LabelEvent carries the start/reset control caption
type LabelEvent struct {
	Label string `json:"label"`
}

// SessionView renders a game by publishing every view call as an event
type SessionView struct {
	sessionID string
	pub       Publisher
}

var _ engine.View = (*SessionView)(nil)

// NewSessionView returns a View that publishes to pub under sessionID
func NewSessionView(sessionID string, pub Publisher) *SessionView {
	return &SessionView{sessionID: sessionID, pub: pub}
}

func (v *SessionView) SetCellHighlight(p engine.Position, on bool) {
	v.pub.Publish(v.sessionID, ViewEventCell, CellEvent{Row: p.Row, Column: p.Column, Active: on})
}

func (v *SessionView) ShowTimer(seconds float64) {
	v.pub.Publish(v.sessionID, ViewEventTimer, TimerEvent{Seconds: seconds, Display: engine.FormatTimer(seconds)})
}

func (v *SessionView) ShowScore(score int) {
	v.pub.Publish(v.sessionID, ViewEventScore, ScoreEvent{Score: score})
}

func (v *SessionView) SetControlLabel(label string) {
	v.pub.Publish(v.sessionID, ViewEventLabel, LabelEvent{Label: label})
}

// PublishState sends a full snapshot, used on Idle/Running transitions
func (v *SessionView) PublishState(state *engine.GameState) {
	v.pub.Publish(v.sessionID, ViewEventState, state)
}
