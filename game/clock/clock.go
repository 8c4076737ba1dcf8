package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic time source able to schedule repeating callbacks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Every invokes fn once per period until the returned Task is stopped.
	// The first invocation happens one period after the call.
	Every(period time.Duration, fn func()) Task
}

// Task is a handle on a repeating callback.
type Task interface {
	// Stop cancels the task. It is safe to call more than once.
	Stop()
}

// Real returns a Clock backed by the wall clock.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Every(period time.Duration, fn func()) Task {
	t := &realTask{
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

// realTask runs fn on its own goroutine for every ticker fire.
type realTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTask) loop(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop may have raced with the tick; done wins.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *realTask) Stop() {
	t.once.Do(func() {
		close(t.done)
	})
}
