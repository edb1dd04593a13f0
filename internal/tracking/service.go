package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"backend-petsancheck/internal/history"
	"backend-petsancheck/internal/walk"
)

var (
	ErrWalkNotFound   = errors.New("walk not found")
	ErrWalkInProgress = errors.New("walker already has a walk in progress")
)

const defaultStatsInterval = time.Second

// Broadcaster receives serialized stats updates for a walk. *stream.Hub implements it.
type Broadcaster interface {
	Broadcast(walkID string, payload []byte)
}

// CompletionNotifier is told about walks once they are stored. *events.Publisher
// implements it.
type CompletionNotifier interface {
	WalkCompleted(ctx context.Context, session walk.Session) error
}

// Service owns the in-memory walks of this API instance. A walk lives here from start
// until it has been stopped and handed to the history store.
type Service struct {
	store    history.Store
	hub      Broadcaster
	notifier CompletionNotifier
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration
	locator  *walk.Validator

	mu     sync.Mutex
	walks  map[string]*entry
	active map[string]string
}

type entry struct {
	walk     *walk.Walk
	walkerID string
	cancel   context.CancelFunc
	done     chan struct{}

	// stopMu serializes Stop so a completed walk is saved at most once.
	stopMu sync.Mutex
	saved  bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCompletionNotifier(n CompletionNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithStatsInterval sets how often running walks push a stats snapshot to the hub.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

func NewService(store history.Store, hub Broadcaster, opts ...Option) *Service {
	s := &Service{
		store:    store,
		hub:      hub,
		logger:   slog.Default(),
		now:      time.Now,
		interval: defaultStatsInterval,
		walks:    map[string]*entry{},
		active:   map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locator = walk.NewValidator(s.now, s.logger)
	return s
}

type StartRequest struct {
	LocationAuthorization walk.Authorization `json:"location_authorization"`
	Note                  string             `json:"note"`
	Weather               json.RawMessage    `json:"weather"`
}

// StatsMessage is the payload pushed to stream subscribers.
type StatsMessage struct {
	Type   string     `json:"type"`
	WalkID string     `json:"walk_id"`
	Stats  walk.Stats `json:"stats"`
}

func (s *Service) Start(ctx context.Context, walkerID string, req StartRequest) (walk.Session, error) {
	id := uuid.NewString()

	s.mu.Lock()
	if current, ok := s.active[walkerID]; ok {
		s.mu.Unlock()
		return walk.Session{}, fmt.Errorf("%w: %s", ErrWalkInProgress, current)
	}
	s.active[walkerID] = id
	s.mu.Unlock()

	w := walk.New(
		walk.WithClock(s.now),
		walk.WithLogger(s.logger),
		walk.WithObserver(func(st walk.Stats) { s.publish(id, st) }),
	)
	session, err := w.Start(req.LocationAuthorization, walk.StartOptions{
		ID:       id,
		WalkerID: walkerID,
		Note:     req.Note,
		Weather:  req.Weather,
	})
	if err != nil {
		s.mu.Lock()
		delete(s.active, walkerID)
		s.mu.Unlock()
		return walk.Session{}, err
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	e := &entry{walk: w, walkerID: walkerID, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.walks[id] = e
	s.mu.Unlock()

	go s.runTicker(tickCtx, id, e)
	return session, nil
}

// Current returns the walker's in-progress walk, if any.
func (s *Service) Current(walkerID string) (walk.Session, bool) {
	s.mu.Lock()
	id, ok := s.active[walkerID]
	e := s.walks[id]
	s.mu.Unlock()
	if !ok || e == nil {
		return walk.Session{}, false
	}
	return e.walk.Session()
}

func (s *Service) Ingest(ctx context.Context, walkerID, walkID string, fixes []walk.Fix) (walk.IngestResult, walk.Stats, error) {
	e, err := s.lookup(walkerID, walkID)
	if err != nil {
		return walk.IngestResult{}, walk.Stats{}, err
	}
	res := e.walk.IngestBatch(fixes)
	return res, e.walk.Stats(), nil
}

func (s *Service) Pause(ctx context.Context, walkerID, walkID string) (walk.Stats, error) {
	e, err := s.lookup(walkerID, walkID)
	if err != nil {
		return walk.Stats{}, err
	}
	if err := e.walk.Pause(); err != nil {
		return walk.Stats{}, err
	}
	return e.walk.Stats(), nil
}

func (s *Service) Resume(ctx context.Context, walkerID, walkID string) (walk.Stats, error) {
	e, err := s.lookup(walkerID, walkID)
	if err != nil {
		return walk.Stats{}, err
	}
	if err := e.walk.Resume(); err != nil {
		return walk.Stats{}, err
	}
	return e.walk.Stats(), nil
}

// Stop completes the walk and saves it. When the save fails the completed walk stays
// registered, and calling Stop again retries the save.
func (s *Service) Stop(ctx context.Context, walkerID, walkID string) (walk.Session, error) {
	e, err := s.lookup(walkerID, walkID)
	if err != nil {
		return walk.Session{}, err
	}

	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	session, err := e.walk.Stop()
	if err != nil {
		if e.saved || e.walk.State() != walk.StateCompleted {
			return walk.Session{}, err
		}
		session, _ = e.walk.Session()
	}

	e.cancel()
	<-e.done

	s.mu.Lock()
	if s.active[walkerID] == walkID {
		delete(s.active, walkerID)
	}
	s.mu.Unlock()

	if err := s.store.Save(ctx, session); err != nil {
		s.logger.Error("save walk failed", "walk_id", walkID, "error", err)
		return session, fmt.Errorf("save walk %s: %w", walkID, err)
	}
	e.saved = true

	s.mu.Lock()
	delete(s.walks, walkID)
	s.mu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.WalkCompleted(ctx, session); err != nil {
			s.logger.Warn("walk completion not announced", "walk_id", walkID, "error", err)
		}
	}
	return session, nil
}

// Owns reports whether walkID is a walk of walkerID still held by this service.
func (s *Service) Owns(walkerID, walkID string) bool {
	_, err := s.lookup(walkerID, walkID)
	return err == nil
}

func (s *Service) Stats(walkerID, walkID string) (walk.Stats, error) {
	e, err := s.lookup(walkerID, walkID)
	if err != nil {
		return walk.Stats{}, err
	}
	return e.walk.Stats(), nil
}

func (s *Service) Points(walkerID, walkID string) ([]walk.RoutePoint, error) {
	e, err := s.lookup(walkerID, walkID)
	if err != nil {
		return nil, err
	}
	session, ok := e.walk.Session()
	if !ok {
		return nil, ErrWalkNotFound
	}
	return session.Points, nil
}

// Locate answers "where am I now" before a walk starts, using the lenient initial
// display policy on the best fix of the batch.
func (s *Service) Locate(fixes []walk.Fix) (walk.Fix, walk.Verdict) {
	return s.locator.Locate(fixes)
}

// Close stops every stats ticker. Walks still in progress are not saved.
func (s *Service) Close() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.walks))
	for _, e := range s.walks {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		<-e.done
	}
	if len(entries) > 0 {
		s.logger.Warn("tracking closed with unsaved walks", "count", len(entries))
	}
}

func (s *Service) lookup(walkerID, walkID string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.walks[walkID]
	if !ok || e.walkerID != walkerID {
		return nil, fmt.Errorf("%w: %s", ErrWalkNotFound, walkID)
	}
	return e, nil
}

// runTicker refreshes subscribers while the walk is running so elapsed time keeps moving
// between fixes.
func (s *Service) runTicker(ctx context.Context, walkID string, e *entry) {
	defer close(e.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.walk.State() == walk.StateActive {
				s.publish(walkID, e.walk.Stats())
			}
		}
	}
}

func (s *Service) publish(walkID string, stats walk.Stats) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(StatsMessage{Type: "stats", WalkID: walkID, Stats: stats})
	if err != nil {
		s.logger.Error("marshal stats", "walk_id", walkID, "error", err)
		return
	}
	s.hub.Broadcast(walkID, payload)
}
