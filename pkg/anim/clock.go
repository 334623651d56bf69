// Package anim drives sprite animation playback.
//
// A [Clock] advances a frame index through a sequence of known length at a
// configurable rate. Its single timer persists across rate and length
// changes: SetFPS takes effect for the next tick without restarting from
// frame 0. A clock whose sequence is empty is Stopped and arms no timer.
package anim

import (
	"context"
	"sync"
	"time"
)

// State is the playback state of a Clock.
type State int

const (
	// Stopped means the sequence is empty; the index never advances.
	Stopped State = iota
	// Running means ticks advance the index.
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Clock advances a frame index at fps ticks per second.
// Methods are safe for concurrent use; at most one Run may be active.
type Clock struct {
	mu     sync.Mutex
	fps    int
	length int
	index  int

	wake chan struct{}
}

// NewClock returns a stopped clock at index 0. fps < 1 is treated as 1.
func NewClock(fps int) *Clock {
	return &Clock{
		fps:  max(fps, 1),
		wake: make(chan struct{}, 1),
	}
}

// SetFPS changes the tick rate. The index is preserved and the pending tick
// is rescheduled from the start of the current period.
func (c *Clock) SetFPS(fps int) {
	fps = max(fps, 1)
	c.mu.Lock()
	changed := c.fps != fps
	c.fps = fps
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// FPS returns the tick rate.
func (c *Clock) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// SetLength sets the sequence length, wrapping the current index into
// range. A length of zero stops the clock. Setting the current length again
// does not disturb the pending tick.
func (c *Clock) SetLength(n int) {
	n = max(n, 0)
	c.mu.Lock()
	changed := c.length != n
	c.length = n
	c.index %= max(c.length, 1)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Len returns the sequence length.
func (c *Clock) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.length
}

// Index returns the current frame index.
func (c *Clock) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// State reports whether the clock is running.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.length == 0 {
		return Stopped
	}
	return Running
}

// Period returns the time between ticks.
func (c *Clock) Period() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Second / time.Duration(c.fps)
}

// Tick advances the index by one, wrapping at the sequence length, and
// reports the new index. A stopped clock does not advance.
func (c *Clock) Tick() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.length == 0 {
		return c.index, false
	}
	c.index = (c.index + 1) % max(c.length, 1)
	return c.index, true
}

// Run ticks the clock until ctx is done, calling onTick with each new index.
// The timer is released before Run returns and onTick is never called after.
//
// Changes wake Run to reschedule the one timer: a new rate fires once the
// new period has elapsed since the last tick (immediately if it already
// has), and a clock that starts running waits one full period.
func (c *Clock) Run(ctx context.Context, onTick func(index int)) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	// last is the start of the current period; zero while stopped.
	var last time.Time
	arm := func() {
		timer.Stop()
		if c.State() != Running {
			last = time.Time{}
			return
		}
		if last.IsZero() {
			last = time.Now()
		}
		timer.Reset(max(c.Period()-time.Since(last), 0))
	}

	arm()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
			arm()
		case <-timer.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			last = time.Now()
			if i, ok := c.Tick(); ok && onTick != nil {
				onTick(i)
			}
			arm()
		}
	}
}

func (c *Clock) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
