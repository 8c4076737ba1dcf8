package engine

// Score is the session's hit counter
type Score struct {
	value int
	view  View
}

// NewScore creates a zero score bound to a view
func NewScore(view View) *Score {
	return &Score{view: view}
}

// Reset sets the score to zero and redraws it
func (s *Score) Reset() {
	s.value = 0
	s.view.ShowScore(0)
}

// Increment adds one point and redraws the score
func (s *Score) Increment() {
	s.value++
	s.view.ShowScore(s.value)
}

// Value returns the current score
func (s *Score) Value() int {
	return s.value
}
