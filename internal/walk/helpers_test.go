package walk

import (
	"sync"
	"time"
)

var epoch = time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSource struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSource) StartUpdates()  { s.record("start") }
func (s *recordingSource) ReduceUpdates() { s.record("reduce") }
func (s *recordingSource) StopUpdates()   { s.record("stop") }

func (s *recordingSource) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func fixAt(lat, lng, accuracy float64, at time.Time) Fix {
	return Fix{Lat: lat, Lng: lng, HorizontalAccuracy: accuracy, RecordedAt: at, SpeedMps: -1}
}

func floatPtr(v float64) *float64 {
	return &v
}
