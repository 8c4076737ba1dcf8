package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/molegame/game/clock"
)

// Countdown counts a fixed duration down on a fast tick and calls its
// completion callback exactly once when the time is up.
type Countdown struct {
	duration time.Duration
	tick     time.Duration

	clock clock.Clock
	view  View

	task      clock.Task
	gen       uint64
	remaining time.Duration
}

// NewCountdown creates a stopped countdown and shows the full duration
func NewCountdown(duration, tick time.Duration, clk clock.Clock, view View) (*Countdown, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: countdown duration must be positive, got %v", ErrInvalidConfig, duration)
	}
	if tick <= 0 {
		return nil, fmt.Errorf("%w: countdown tick must be positive, got %v", ErrInvalidConfig, tick)
	}

	c := &Countdown{
		duration:  duration,
		tick:      tick,
		clock:     clk,
		view:      view,
		remaining: duration,
	}
	c.view.ShowTimer(duration.Seconds())
	return c, nil
}

// Start begins a new countdown. A countdown already in flight is cancelled
// first and its callback will never fire.
func (c *Countdown) Start(onExpire func()) {
	c.cancel()

	gen := c.gen
	start := c.clock.Now()
	c.remaining = c.duration
	c.task = c.clock.Every(c.tick, func() {
		if c.gen != gen {
			return
		}

		remaining := start.Add(c.duration).Sub(c.clock.Now())
		if remaining > 0 {
			c.remaining = remaining
			c.view.ShowTimer(remaining.Seconds())
			return
		}

		// Cancel before notifying so onExpire can only run once.
		c.cancel()
		c.remaining = 0
		c.view.ShowTimer(0)
		if onExpire != nil {
			onExpire()
		}
	})
}

// Stop aborts the countdown and shows the full duration again
func (c *Countdown) Stop() {
	c.cancel()
	c.remaining = c.duration
	c.view.ShowTimer(c.duration.Seconds())
}

// Active reports whether a countdown is in flight
func (c *Countdown) Active() bool {
	return c.task != nil
}

// Remaining returns the last computed remaining time
func (c *Countdown) Remaining() time.Duration {
	return c.remaining
}

// Duration returns the configured countdown length
func (c *Countdown) Duration() time.Duration {
	return c.duration
}

func (c *Countdown) cancel() {
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
	c.gen++
}
