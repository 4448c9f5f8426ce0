package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

// HeatmapLister lists heatmap points matching validated filters.
type HeatmapLister interface {
	ListHeatmapPoints(ctx context.Context, f domain.Filters) ([]domain.HeatmapPoint, error)
}

// EarthquakeAPI is every earthquake API operation a session uses.
type EarthquakeAPI interface {
	EarthquakeLister
	HeatmapLister
	NearbyFinder
	AreaDataFetcher
}

// Session is the dashboard state of one browser. Its views share nothing
// but the session itself.
type Session struct {
	ID          string
	Coordinator *Coordinator
	Map         *MapView
	Nearby      *NearbyPanel
	Advisory    *AdvisoryPanel

	heatmap HeatmapLister
}

func newSession(id string, api EarthquakeAPI, generator TextGenerator, tiles TileLayer, metrics *observability.Metrics, logger *slog.Logger) *Session {
	logger = logger.With("session", id)
	return &Session{
		ID:          id,
		Coordinator: NewCoordinator(api, metrics, logger),
		Map:         NewMapView(tiles, metrics, logger),
		Nearby:      NewNearbyPanel(api, metrics, logger),
		Advisory:    NewAdvisoryPanel(api, generator, metrics, logger),
		heatmap:     api,
	}
}

// Init runs the initial coordinator fetch and draws the map.
func (s *Session) Init(ctx context.Context) {
	s.Coordinator.Init(ctx)
	s.syncMap()
}

// ApplyFilters updates the coordinator filters and redraws the map.
func (s *Session) ApplyFilters(ctx context.Context, loc domain.UserLocation, mag domain.MagnitudeFilter) {
	s.Coordinator.SetFilters(ctx, loc, mag)
	s.syncMap()
}

// Heatmap lists heatmap points for the current filters.
func (s *Session) Heatmap(ctx context.Context) ([]domain.HeatmapPoint, error) {
	return s.heatmap.ListHeatmapPoints(ctx, s.Coordinator.Filters())
}

// Close tears down the session's map.
func (s *Session) Close() {
	s.Map.Close()
}

func (s *Session) syncMap() {
	st := s.Coordinator.State()
	s.Map.Sync(st.Location, st.Records)
}

// StoreConfig configures a Store.
type StoreConfig struct {
	TTL   time.Duration
	Tiles TileLayer
}

type storeEntry struct {
	session  *Session
	lastSeen time.Time
}

// Store holds live sessions and expires idle ones.
type Store struct {
	api       EarthquakeAPI
	generator TextGenerator
	cfg       StoreConfig
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*storeEntry
}

// NewStore creates an empty store. A nil generator disables advisories.
func NewStore(api EarthquakeAPI, generator TextGenerator, cfg StoreConfig, metrics *observability.Metrics, logger *slog.Logger) *Store {
	return &Store{
		api:       api,
		generator: generator,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		metrics:   metrics,
		logger:    logger,
		sessions:  make(map[string]*storeEntry),
	}
}

// Create registers a new session with a fresh identifier.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.api, s.generator, s.cfg.Tiles, s.metrics, s.logger)

	s.mu.Lock()
	s.sessions[sess.ID] = &storeEntry{session: sess, lastSeen: s.clock.Now()}
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SessionsActive.Set(float64(n))
	s.logger.Debug("session created", "session", sess.ID)
	return sess
}

// Get returns a live session and marks it as used. Expired sessions are
// closed and reported as missing.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.clock.Now()
	if now.Sub(e.lastSeen) > s.cfg.TTL {
		s.removeLocked(id, e)
		return nil, false
	}
	e.lastSeen = now
	return e.session, true
}

// Len returns the number of held sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and removes every session idle for longer than the TTL and
// returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.cfg.TTL {
			s.removeLocked(id, e)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("expired idle sessions", "count", removed, "remaining", len(s.sessions))
	}
	return removed
}

// Run sweeps expired sessions every half TTL until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.TTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Close closes every session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		s.removeLocked(id, e)
	}
}

func (s *Store) removeLocked(id string, e *storeEntry) {
	e.session.Close()
	delete(s.sessions, id)
	s.metrics.SessionsActive.Set(float64(len(s.sessions)))
}
