package walk

import (
	"fmt"
	"time"
)

type ClockState int

const (
	ClockNotStarted ClockState = iota
	ClockRunning
	ClockPaused
	ClockStopped
)

func (s ClockState) String() string {
	switch s {
	case ClockNotStarted:
		return "not_started"
	case ClockRunning:
		return "running"
	case ClockPaused:
		return "paused"
	case ClockStopped:
		return "stopped"
	}
	return "unknown"
}

// Clock measures active walking time, leaving paused intervals out.
// It is not safe for concurrent use; Walk serializes access to it.
type Clock struct {
	now         func() time.Time
	state       ClockState
	accumulated time.Duration
	resumedAt   time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) State() ClockState {
	return c.state
}

func (c *Clock) IsRunning() bool {
	return c.state == ClockRunning
}

func (c *Clock) Start() error {
	if c.state != ClockNotStarted {
		return c.transitionErr("start")
	}
	c.accumulated = 0
	c.resumedAt = c.now()
	c.state = ClockRunning
	return nil
}

func (c *Clock) Pause() error {
	if c.state != ClockRunning {
		return c.transitionErr("pause")
	}
	c.fold()
	c.state = ClockPaused
	return nil
}

func (c *Clock) Resume() error {
	if c.state != ClockPaused {
		return c.transitionErr("resume")
	}
	c.resumedAt = c.now()
	c.state = ClockRunning
	return nil
}

// Stop folds any running interval in and freezes the clock.
func (c *Clock) Stop() (time.Duration, error) {
	switch c.state {
	case ClockRunning:
		c.fold()
	case ClockPaused:
	default:
		return 0, c.transitionErr("stop")
	}
	c.state = ClockStopped
	return c.accumulated, nil
}

func (c *Clock) Elapsed() time.Duration {
	if c.state != ClockRunning {
		return c.accumulated
	}
	return c.accumulated + c.sinceResume()
}

func (c *Clock) fold() {
	c.accumulated += c.sinceResume()
	c.resumedAt = time.Time{}
}

// sinceResume never goes negative, even if the wall clock steps back.
func (c *Clock) sinceResume() time.Duration {
	d := c.now().Sub(c.resumedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (c *Clock) transitionErr(op string) error {
	return fmt.Errorf("%w: cannot %s clock while %s", ErrInvalidStateTransition, op, c.state)
}
