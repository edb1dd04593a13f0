package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"backend-petsancheck/internal/history"
	"backend-petsancheck/internal/walk"
)

var epoch = time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
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

type memStore struct {
	mu       sync.Mutex
	saved    []walk.Session
	failures int
}

func (m *memStore) Save(_ context.Context, s walk.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errSave
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *memStore) List(context.Context, string, int) ([]history.Record, error) { return nil, nil }
func (m *memStore) Get(context.Context, string) (history.Record, error) {
	return history.Record{}, history.ErrNotFound
}
func (m *memStore) Points(context.Context, string) ([]walk.RoutePoint, error) { return nil, nil }

func (m *memStore) Saved() []walk.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]walk.Session(nil), m.saved...)
}

type recordingHub struct {
	mu       sync.Mutex
	messages []StatsMessage
}

func (h *recordingHub) Broadcast(walkID string, payload []byte) {
	var msg StatsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHub) Messages() []StatsMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]StatsMessage(nil), h.messages...)
}

func fixAt(lat, lng, accuracy float64, at time.Time) walk.Fix {
	return walk.Fix{Lat: lat, Lng: lng, HorizontalAccuracy: accuracy, RecordedAt: at, SpeedMps: -1}
}

func newTestService(store history.Store, hub Broadcaster) (*Service, *fakeClock) {
	clock := &fakeClock{t: epoch}
	svc := NewService(store, hub, WithClock(clock.Now), WithStatsInterval(time.Hour))
	return svc, clock
}

type recordingNotifier struct {
	mu    sync.Mutex
	walks []string
	err   error
}

func (n *recordingNotifier) WalkCompleted(_ context.Context, s walk.Session) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.walks = append(n.walks, s.ID)
	return n.err
}
