package walk

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the lifecycle aggregate of one walk. EndedAt is nil while the walk is active
// or paused; once set, the session is final.
type Session struct {
	ID        string          `json:"id"`
	WalkerID  string          `json:"walker_id"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Points    []RoutePoint    `json:"points,omitempty"`
	Weather   json.RawMessage `json:"weather,omitempty"`
	Note      string          `json:"note,omitempty"`
	Stats     Stats           `json:"stats"`
}

func (s Session) Completed() bool {
	return s.EndedAt != nil
}

type StartOptions struct {
	ID       string
	WalkerID string
	Note     string
	// Weather is an opaque snapshot taken by the caller when the walk starts.
	Weather json.RawMessage
}

type IngestResult struct {
	Accepted bool         `json:"accepted"`
	Appended bool         `json:"appended"`
	Point    *RoutePoint  `json:"point,omitempty"`
	Reason   RejectReason `json:"reason,omitempty"`
}

// Walk is the state machine for a single walk: idle, active, paused, completed.
// Mutations are serialized by a write lock; Stats and Session return copies under a
// read lock, so a UI ticker can read while fixes are being ingested.
type Walk struct {
	mu sync.RWMutex

	now       func() time.Time
	logger    *slog.Logger
	validator *Validator
	source    LocationSource
	observers []func(Stats)

	state        State
	session      Session
	route        *Route
	clock        *Clock
	lastAccepted *Fix
	final        Stats
}

type Option func(*Walk)

func WithClock(now func() time.Time) Option {
	return func(w *Walk) {
		if now != nil {
			w.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Walk) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithLocationSource(src LocationSource) Option {
	return func(w *Walk) {
		if src != nil {
			w.source = src
		}
	}
}

// WithObserver registers fn to receive a Stats snapshot after every transition and every
// appended point. fn runs on the mutating goroutine, outside the walk's lock.
func WithObserver(fn func(Stats)) Option {
	return func(w *Walk) {
		if fn != nil {
			w.observers = append(w.observers, fn)
		}
	}
}

func New(opts ...Option) *Walk {
	w := &Walk{
		now:    time.Now,
		logger: slog.Default(),
		source: noopSource{},
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.validator = NewValidator(w.now, w.logger)
	return w
}

func (w *Walk) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Walk) ID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session.ID
}

// Start begins recording. auth is the caller's proof of location permission.
func (w *Walk) Start(auth Authorization, opts StartOptions) (Session, error) {
	w.mu.Lock()
	if w.state != StateIdle {
		err := w.transitionErr("start")
		w.mu.Unlock()
		return Session{}, err
	}
	if !auth.Granted() {
		w.mu.Unlock()
		return Session{}, fmt.Errorf("%w: authorization is %q", ErrPermissionRequired, auth)
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	clock := NewClock(w.now)
	if err := clock.Start(); err != nil {
		w.mu.Unlock()
		return Session{}, err
	}
	w.clock = clock
	w.route = NewRoute()
	w.lastAccepted = nil
	w.session = Session{
		ID:        id,
		WalkerID:  opts.WalkerID,
		StartedAt: w.now(),
		Note:      opts.Note,
	}
	if len(opts.Weather) > 0 {
		w.session.Weather = append(json.RawMessage(nil), opts.Weather...)
	}
	w.state = StateActive
	snap := w.sessionLocked()
	w.mu.Unlock()

	w.source.StartUpdates()
	w.logger.Info("walk started", "walk_id", id, "walker_id", opts.WalkerID)
	w.notify(snap.Stats)
	return snap, nil
}

// Ingest screens a single fix and appends it to the route. Outside the active state the
// fix is dropped, not buffered.
func (w *Walk) Ingest(fix Fix) IngestResult {
	w.mu.Lock()
	res := w.ingestLocked(fix)
	var stats Stats
	if res.Appended {
		stats = w.statsLocked()
	}
	w.mu.Unlock()

	if res.Appended {
		w.notify(stats)
	}
	return res
}

// IngestBatch keeps only the most accurate fix of a delivery batch.
func (w *Walk) IngestBatch(fixes []Fix) IngestResult {
	best, ok := BestOfBatch(fixes)
	if !ok {
		return IngestResult{Reason: ReasonEmptyBatch}
	}
	return w.Ingest(best)
}

func (w *Walk) ingestLocked(fix Fix) IngestResult {
	if w.state != StateActive {
		return IngestResult{Reason: ReasonNotTracking}
	}
	verdict := w.validator.Accept(fix, w.lastAccepted, ModeActiveTracking)
	if !verdict.Accepted {
		return IngestResult{Reason: verdict.Reason}
	}

	accepted := fix
	w.lastAccepted = &accepted

	res := IngestResult{Accepted: true}
	if point, ok := w.route.Append(fix); ok {
		res.Appended = true
		res.Point = &point
	}
	return res
}

func (w *Walk) Pause() error {
	w.mu.Lock()
	if w.state != StateActive {
		err := w.transitionErr("pause")
		w.mu.Unlock()
		return err
	}
	if err := w.clock.Pause(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.state = StatePaused
	stats := w.statsLocked()
	id := w.session.ID
	w.mu.Unlock()

	w.source.ReduceUpdates()
	w.logger.Info("walk paused", "walk_id", id, "duration_sec", stats.DurationSec)
	w.notify(stats)
	return nil
}

func (w *Walk) Resume() error {
	w.mu.Lock()
	if w.state != StatePaused {
		err := w.transitionErr("resume")
		w.mu.Unlock()
		return err
	}
	if err := w.clock.Resume(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.state = StateActive
	stats := w.statsLocked()
	id := w.session.ID
	w.mu.Unlock()

	w.source.StartUpdates()
	w.logger.Info("walk resumed", "walk_id", id)
	w.notify(stats)
	return nil
}

// Stop completes the walk, freezes its statistics and returns the finished session for
// hand-off to storage. The walk cannot be restarted afterwards.
func (w *Walk) Stop() (Session, error) {
	w.mu.Lock()
	if w.state != StateActive && w.state != StatePaused {
		err := w.transitionErr("stop")
		w.mu.Unlock()
		return Session{}, err
	}
	if _, err := w.clock.Stop(); err != nil {
		w.mu.Unlock()
		return Session{}, err
	}
	ended := w.now()
	w.session.EndedAt = &ended
	w.state = StateCompleted
	w.final = w.liveStatsLocked()
	snap := w.sessionLocked()
	w.mu.Unlock()

	w.source.StopUpdates()
	w.logger.Info("walk completed",
		"walk_id", snap.ID,
		"distance_m", snap.Stats.DistanceM,
		"duration_sec", snap.Stats.DurationSec,
		"points", snap.Stats.PointCount,
	)
	w.notify(snap.Stats)
	return snap, nil
}

// Stats is a side-effect free snapshot. Idle walks report zeros; completed walks report
// the values frozen at Stop.
func (w *Walk) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.statsLocked()
}

// Session returns a copy of the current session, or false before Start.
func (w *Walk) Session() (Session, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state == StateIdle {
		return Session{}, false
	}
	return w.sessionLocked(), true
}

func (w *Walk) statsLocked() Stats {
	switch w.state {
	case StateIdle:
		return Stats{State: StateIdle}
	case StateCompleted:
		return w.final
	}
	return w.liveStatsLocked()
}

func (w *Walk) liveStatsLocked() Stats {
	st := ComputeStats(w.route.TotalDistance(), w.clock.Elapsed())
	st.State = w.state
	st.ElevationGainM = w.route.ElevationGain()
	st.PointCount = w.route.Len()
	if lat, lng, ok := w.route.Center(); ok {
		st.CenterLat = &lat
		st.CenterLng = &lng
	}
	return st
}

func (w *Walk) sessionLocked() Session {
	s := w.session
	s.Points = w.route.Points()
	s.Stats = w.statsLocked()
	return s
}

func (w *Walk) notify(stats Stats) {
	for _, fn := range w.observers {
		fn(stats)
	}
}

func (w *Walk) transitionErr(op string) error {
	return fmt.Errorf("%w: cannot %s walk while %s", ErrInvalidStateTransition, op, w.state)
}
