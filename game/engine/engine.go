package engine

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/molegame/game/clock"
)

// Game is the session controller. It composes a MoleField, a Score and a
// Countdown and toggles between Idle and Running.
//
// All public methods and every scheduled tick run under one mutex, so the
// game behaves as if driven by a single event loop.
type Game struct {
	mu sync.Mutex

	config    *GameConfig
	view      View
	field     *MoleField
	score     *Score
	countdown *Countdown
	onChange  func(*GameState)

	state  State
	label  string
	closed bool

	lastScore int
	bestScore int
	rounds    int
	hits      int
	misses    int
}

// Option customizes a Game
type Option func(*gameOptions)

type gameOptions struct {
	rng      *rand.Rand
	onChange func(*GameState)
}

// WithRand sets the random source used to place moles
func WithRand(rng *rand.Rand) Option {
	return func(o *gameOptions) { o.rng = rng }
}

// WithStateHook registers fn to receive a snapshot after every Idle/Running
// transition. fn runs with the game locked and must not call back into it.
func WithStateHook(fn func(*GameState)) Option {
	return func(o *gameOptions) { o.onChange = fn }
}

// NewGame validates config and builds an idle game
func NewGame(config *GameConfig, clk clock.Clock, view View, opts ...Option) (*Game, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	if view == nil {
		view = NopView{}
	}

	var o gameOptions
	for _, opt := range opts {
		opt(&o)
	}

	g := &Game{
		config:   config,
		view:     view,
		onChange: o.onChange,
		state:    Idle,
		label:    StartLabel,
	}

	// Components schedule through a clock that serializes their ticks with
	// the game's own entry points.
	sched := &lockedClock{inner: clk, game: g}

	field, err := NewMoleField(config.Rows, config.Columns, config.SimultaneousMoles,
		config.VisibleDuration(), sched, view, o.rng)
	if err != nil {
		return nil, err
	}
	countdown, err := NewCountdown(config.TimerDuration(), config.TickInterval(), sched, view)
	if err != nil {
		return nil, err
	}

	g.field = field
	g.countdown = countdown
	g.score = NewScore(view)
	g.view.ShowScore(0)
	g.view.SetControlLabel(g.label)

	return g, nil
}

// Start toggles the game. From Idle it starts a new round; while Running it
// aborts the round. It returns the resulting state.
func (g *Game) Start() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return g.state
	}

	if g.state == Idle {
		g.begin()
	} else {
		g.abort()
	}
	g.notify()
	return g.state
}

// Hit handles a click on pos. It returns true when pos held a mole, in
// which case the mole is removed and the score incremented.
func (g *Game) Hit(pos Position) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Remove first so the same mole can never score twice.
	if !g.field.Remove(pos) {
		if g.state == Running {
			g.misses++
		}
		return false
	}
	g.score.Increment()
	g.hits++
	return true
}

// Close cancels every pending tick. The game ignores Start afterwards.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	g.field.StopSpawning()
	g.countdown.cancel()
	g.state = Idle
}

// Closed reports whether Close has been called
func (g *Game) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// State returns the current lifecycle state
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Score returns the current score
func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score.Value()
}

// ActiveMoles returns the current moles in spawn order
func (g *Game) ActiveMoles() []Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.field.Active()
}

// Config returns the game configuration
func (g *Game) Config() *GameConfig {
	return g.config
}

// Snapshot returns a copy of the game state
func (g *Game) Snapshot() *GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Game) begin() {
	g.state = Running
	g.setLabel(ResetLabel)
	g.score.Reset()
	g.rounds++
	g.field.StartSpawning()
	g.countdown.Start(g.expire)
}

// expire runs from the countdown tick, already under the game lock
func (g *Game) expire() {
	g.state = Idle
	g.field.StopSpawning()
	g.setLabel(StartLabel)

	final := g.score.Value()
	g.lastScore = final
	if final > g.bestScore {
		g.bestScore = final
	}
	g.score.Reset()
	g.notify()
}

func (g *Game) abort() {
	g.state = Idle
	g.field.StopSpawning()
	g.countdown.Stop()
	g.score.Reset()
	g.setLabel(StartLabel)
}

func (g *Game) setLabel(label string) {
	g.label = label
	g.view.SetControlLabel(label)
}

func (g *Game) notify() {
	if g.onChange != nil {
		g.onChange(g.snapshot())
	}
}

func (g *Game) snapshot() *GameState {
	remaining := g.countdown.Remaining().Seconds()
	cellW, cellH := g.config.CellSize()
	return &GameState{
		State:            g.state,
		Score:            g.score.Value(),
		LastScore:        g.lastScore,
		RemainingSeconds: remaining,
		Timer:            FormatTimer(remaining),
		ControlLabel:     g.label,
		ActiveMoles:      g.field.Active(),
		Rows:             g.config.Rows,
		Columns:          g.config.Columns,
		CellWidth:        cellW,
		CellHeight:       cellH,
		ConfigName:       g.config.Name,
		Rounds:           g.rounds,
		Hits:             g.hits,
		Misses:           g.misses,
		BestScore:        g.bestScore,
	}
}

// lockedClock runs every scheduled callback under the game mutex and drops
// callbacks once the game is closed.
type lockedClock struct {
	inner clock.Clock
	game  *Game
}

func (c *lockedClock) Now() time.Time {
	return c.inner.Now()
}

func (c *lockedClock) Every(period time.Duration, fn func()) clock.Task {
	g := c.game
	return c.inner.Every(period, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.closed {
			return
		}
		fn()
	})
}
