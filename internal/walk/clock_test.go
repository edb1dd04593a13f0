package walk

import (
	"errors"
	"testing"
	"time"
)

func TestClockElapsedAfterStart(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.Elapsed() != 0 {
		t.Fatalf("expected zero elapsed, got %v", c.Elapsed())
	}
	fc.Advance(42 * time.Second)
	if c.Elapsed() != 42*time.Second {
		t.Fatalf("unexpected elapsed %v", c.Elapsed())
	}
}

func TestClockExcludesPausedTime(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now)
	_ = c.Start()

	fc.Advance(60 * time.Second)
	if err := c.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	fc.Advance(300 * time.Second)
	if c.Elapsed() != 60*time.Second {
		t.Fatalf("paused clock moved: %v", c.Elapsed())
	}
	if err := c.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	fc.Advance(30 * time.Second)

	final, err := c.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if final != 90*time.Second {
		t.Fatalf("final elapsed = %v want 90s", final)
	}

	fc.Advance(time.Hour)
	if c.Elapsed() != 90*time.Second {
		t.Fatalf("stopped clock moved: %v", c.Elapsed())
	}
}

func TestClockStopWhilePaused(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now)
	_ = c.Start()
	fc.Advance(10 * time.Second)
	_ = c.Pause()
	fc.Advance(10 * time.Second)

	final, err := c.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if final != 10*time.Second {
		t.Fatalf("final elapsed = %v want 10s", final)
	}
}

func TestClockInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Clock)
		op    func(c *Clock) error
	}{
		{"start twice", func(c *Clock) { _ = c.Start() }, func(c *Clock) error { return c.Start() }},
		{"pause before start", func(*Clock) {}, func(c *Clock) error { return c.Pause() }},
		{"pause twice", func(c *Clock) { _ = c.Start(); _ = c.Pause() }, func(c *Clock) error { return c.Pause() }},
		{"resume while running", func(c *Clock) { _ = c.Start() }, func(c *Clock) error { return c.Resume() }},
		{"stop before start", func(*Clock) {}, func(c *Clock) error { _, err := c.Stop(); return err }},
		{"stop twice", func(c *Clock) { _ = c.Start(); _, _ = c.Stop() }, func(c *Clock) error { _, err := c.Stop(); return err }},
		{"start after stop", func(c *Clock) { _ = c.Start(); _, _ = c.Stop() }, func(c *Clock) error { return c.Start() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClock(newFakeClock().Now)
			tt.setup(c)
			before := c.State()
			err := tt.op(c)
			if !errors.Is(err, ErrInvalidStateTransition) {
				t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
			}
			if c.State() != before {
				t.Fatalf("state changed from %s to %s", before, c.State())
			}
		})
	}
}

func TestClockBackwardsWallClock(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.Now)
	_ = c.Start()
	fc.Advance(-5 * time.Second)
	if c.Elapsed() != 0 {
		t.Fatalf("expected elapsed clamped at zero, got %v", c.Elapsed())
	}
}
