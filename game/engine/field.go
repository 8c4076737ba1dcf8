package engine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wricardo/mcp-training/molegame/game/clock"
)

// MoleField owns the set of active moles on a rows x columns grid. Every
// visible period the whole set is wiped and repopulated.
type MoleField struct {
	rows    int
	columns int
	target  int
	period  time.Duration

	clock clock.Clock
	view  View
	rng   *rand.Rand

	active []Position
	index  map[Position]struct{}

	// gen identifies the current spawn cycle; ticks from an older cycle
	// that were already waiting on the game lock are ignored.
	task clock.Task
	gen  uint64
}

// NewMoleField creates an empty field. target must be below rows*columns,
// otherwise GenerateOne could never find a free cell.
func NewMoleField(rows, columns, target int, period time.Duration, clk clock.Clock, view View, rng *rand.Rand) (*MoleField, error) {
	if rows < 1 || columns < 1 {
		return nil, fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidConfig, rows, columns)
	}
	if target < 1 || target >= rows*columns {
		return nil, fmt.Errorf("%w: simultaneous moles must be in [1, %d), got %d", ErrInvalidConfig, rows*columns, target)
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: spawn period must be positive, got %v", ErrInvalidConfig, period)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &MoleField{
		rows:    rows,
		columns: columns,
		target:  target,
		period:  period,
		clock:   clk,
		view:    view,
		rng:     rng,
		index:   make(map[Position]struct{}, target),
	}, nil
}

// StartSpawning fills the field and then repopulates it every period
func (f *MoleField) StartSpawning() {
	f.cancel()

	gen := f.gen
	f.Generate()
	f.task = f.clock.Every(f.period, func() {
		if f.gen != gen {
			return
		}
		f.Clean()
		f.Generate()
	})
}

// StopSpawning cancels the spawn cycle and clears every mole
func (f *MoleField) StopSpawning() {
	f.cancel()
	f.Clean()
}

// Spawning reports whether the spawn cycle is scheduled
func (f *MoleField) Spawning() bool {
	return f.task != nil
}

// Generate adds moles until the target count is reached
func (f *MoleField) Generate() {
	for len(f.active) < f.target {
		f.GenerateOne()
	}
}

// GenerateOne activates one uniformly random free cell
func (f *MoleField) GenerateOne() Position {
	for {
		p := Position{
			Row:    f.rng.IntN(f.rows),
			Column: f.rng.IntN(f.columns),
		}
		if _, taken := f.index[p]; taken {
			continue
		}
		f.index[p] = struct{}{}
		f.active = append(f.active, p)
		f.view.SetCellHighlight(p, true)
		return p
	}
}

// Clean clears every active mole
func (f *MoleField) Clean() {
	for _, p := range f.active {
		f.view.SetCellHighlight(p, false)
	}
	f.active = f.active[:0]
	clear(f.index)
}

// Remove deactivates p and clears its highlight. It returns false when p
// was not active.
func (f *MoleField) Remove(p Position) bool {
	if _, ok := f.index[p]; !ok {
		return false
	}
	delete(f.index, p)
	for i, m := range f.active {
		if m == p {
			f.active = append(f.active[:i], f.active[i+1:]...)
			break
		}
	}
	f.view.SetCellHighlight(p, false)
	return true
}

// Contains reports whether p is an active mole
func (f *MoleField) Contains(p Position) bool {
	_, ok := f.index[p]
	return ok
}

// Active returns a copy of the active moles in spawn order
func (f *MoleField) Active() []Position {
	out := make([]Position, len(f.active))
	copy(out, f.active)
	return out
}

// Len returns the number of active moles
func (f *MoleField) Len() int {
	return len(f.active)
}

func (f *MoleField) cancel() {
	if f.task != nil {
		f.task.Stop()
		f.task = nil
	}
	f.gen++
}
