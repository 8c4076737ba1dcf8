package clock

import (
	"sync"
	"time"
)

// Manual is a virtual Clock whose time only moves when Advance or Set is
// called. Callbacks run synchronously on the goroutine that moves the clock.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
	seq   uint64
}

type manualTask struct {
	clock   *Manual
	period  time.Duration
	next    time.Time
	seq     uint64
	fn      func()
	stopped bool
}

// NewManual creates a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn to run each period of virtual time.
func (m *Manual) Every(period time.Duration, fn func()) Task {
	if period <= 0 {
		panic("clock: non-positive period")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{
		clock:  m,
		period: period,
		next:   m.now.Add(period),
		seq:    m.seq,
		fn:     fn,
	}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, firing every task that comes due in
// chronological order. Ties fire in registration order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.Set(target)
}

// Set moves the clock to t, firing due tasks on the way. Moving backwards
// only changes Now.
func (m *Manual) Set(t time.Time) {
	for {
		m.mu.Lock()
		task := m.nextDue(t)
		if task == nil {
			m.now = t
			m.mu.Unlock()
			return
		}
		m.now = task.next
		task.next = task.next.Add(task.period)
		fn := task.fn
		m.mu.Unlock()

		// Run outside the lock: callbacks may schedule or stop tasks.
		fn()
	}
}

// Pending returns the number of tasks that have not been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// nextDue returns the earliest live task due at or before limit.
func (m *Manual) nextDue(limit time.Time) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if t.next.After(limit) {
			continue
		}
		if best == nil || t.next.Before(best.next) || (t.next.Equal(best.next) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (t *manualTask) Stop() {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	for i, other := range m.tasks {
		if other == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
}
