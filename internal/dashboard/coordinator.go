package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

const fallbackLoadError = "Failed to load data"

// EarthquakeLister lists earthquakes matching validated filters.
type EarthquakeLister interface {
	ListEarthquakes(ctx context.Context, f domain.Filters) ([]domain.EarthquakeRecord, error)
}

// CoordinatorState is a snapshot of the coordinator. Error and Records are
// mutually exclusive: a failed fetch drops the previous records.
type CoordinatorState struct {
	Location  domain.UserLocation
	Magnitude domain.MagnitudeFilter
	Records   []domain.EarthquakeRecord
	Loading   bool
	Error     string
}

// Coordinator owns the top-level filters and the main earthquake list.
type Coordinator struct {
	lister  EarthquakeLister
	metrics *observability.Metrics
	logger  *slog.Logger

	mu          sync.Mutex
	seq         sequencer
	initialized bool
	location    domain.UserLocation
	magnitude   domain.MagnitudeFilter
	records     []domain.EarthquakeRecord
	loading     bool
	errMsg      string
}

// NewCoordinator creates a coordinator with no filters set.
func NewCoordinator(lister EarthquakeLister, metrics *observability.Metrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		lister:  lister,
		metrics: metrics,
		logger:  logger,
	}
}

// Init performs the initial fetch. Later calls do nothing.
func (c *Coordinator) Init(ctx context.Context) {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.mu.Unlock()

	c.Refresh(ctx)
}

// SetFilters replaces the location and magnitude filters and fetches once
// when either changed. It reports whether a fetch was issued.
func (c *Coordinator) SetFilters(ctx context.Context, loc domain.UserLocation, mag domain.MagnitudeFilter) bool {
	c.mu.Lock()
	if c.initialized && c.location.Equal(loc) && c.magnitude.Equal(mag) {
		c.mu.Unlock()
		return false
	}
	c.initialized = true
	c.location = loc
	c.magnitude = mag
	c.mu.Unlock()

	c.Refresh(ctx)
	return true
}

// Refresh issues one list request with the current filters.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.mu.Lock()
	n := c.seq.next()
	filters := domain.NewFilters(c.location, c.magnitude, c.logger)
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	records, err := c.lister.ListEarthquakes(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seq.latest(n) {
		c.metrics.StaleResponses.WithLabelValues("coordinator").Inc()
		c.logger.Debug("discarding stale earthquake list response", "request", n, "latest", c.seq.last)
		return
	}
	c.loading = false
	if err != nil {
		c.logger.Error("failed to fetch earthquake data", "error", err)
		c.errMsg = domain.DisplayMessage(err, fallbackLoadError)
		c.records = nil
		return
	}
	c.records = records
}

// Filters returns the validated filters for the current state.
func (c *Coordinator) Filters() domain.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.NewFilters(c.location, c.magnitude, c.logger)
}

// State returns a snapshot of the coordinator.
func (c *Coordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CoordinatorState{
		Location:  c.location,
		Magnitude: c.magnitude,
		Records:   c.records,
		Loading:   c.loading,
		Error:     c.errMsg,
	}
}
