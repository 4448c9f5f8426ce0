package dashboard

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

// MarkerKind distinguishes the user marker from earthquake epicenters.
type MarkerKind string

const (
	MarkerUser      MarkerKind = "user"
	MarkerEpicenter MarkerKind = "epicenter"
)

const userMarkerKey = "user-location"

// Marker is one point on the map.
type Marker struct {
	Key       string     `json:"key"`
	Kind      MarkerKind `json:"kind"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Color     string     `json:"color"`
	Popup     string     `json:"popup"`
}

// TileLayer is the base map layer. It is created once per map.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// MarkerDiff is what the last reconciliation changed. A marker whose content
// changed appears in both lists.
type MarkerDiff struct {
	Added   []Marker `json:"added"`
	Removed []string `json:"removed"`
}

// MapSnapshot is the state the browser map draws.
type MapSnapshot struct {
	Tiles    TileLayer  `json:"tiles"`
	Markers  []Marker   `json:"markers"`
	LastDiff MarkerDiff `json:"last_diff"`
}

// MapView keeps the current marker set and reconciles it against the set
// derived from the user location and records on every Sync.
type MapView struct {
	metrics *observability.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	tiles    *TileLayer
	current  []Marker
	index    map[string]Marker
	lastDiff MarkerDiff
	closed   bool
}

// NewMapView creates a map with its tile layer.
func NewMapView(tiles TileLayer, metrics *observability.Metrics, logger *slog.Logger) *MapView {
	return &MapView{
		metrics: metrics,
		logger:  logger,
		tiles:   &tiles,
		index:   make(map[string]Marker),
	}
}

// DesiredMarkers derives the marker set for a location and record sequence.
// Records without two finite coordinates are logged and skipped.
func DesiredMarkers(loc domain.UserLocation, records []domain.EarthquakeRecord, logger *slog.Logger) []Marker {
	markers := make([]Marker, 0, len(records)+1)

	if lat, lon, ok := loc.Coordinates(); ok {
		markers = append(markers, Marker{
			Key:       userMarkerKey,
			Kind:      MarkerUser,
			Latitude:  lat,
			Longitude: lon,
			Color:     "blue",
			Popup:     "Your Location",
		})
	}

	// Keys stay unique even when a suffixed key collides with a real id.
	used := make(map[string]bool, len(records))
	suffix := make(map[string]int)
	for _, r := range records {
		lon, lat, ok := r.Geometry.LonLat()
		if !ok {
			logger.Warn("invalid coordinates for earthquake", "record_id", r.ID)
			continue
		}
		base := "eq-" + r.ID
		key := base
		for used[key] {
			suffix[base]++
			key = fmt.Sprintf("%s#%d", base, suffix[base])
		}
		used[key] = true

		markers = append(markers, Marker{
			Key:       key,
			Kind:      MarkerEpicenter,
			Latitude:  lat,
			Longitude: lon,
			Color:     "red",
			Popup:     r.Properties.Place + " - Magnitude: " + strconv.FormatFloat(r.Properties.Magnitude, 'f', -1, 64),
		})
	}
	return markers
}

// Sync reconciles the current markers with the desired set and returns the
// changes. The tile layer is left alone. A closed map ignores Sync.
func (m *MapView) Sync(loc domain.UserLocation, records []domain.EarthquakeRecord) MarkerDiff {
	desired := DesiredMarkers(loc, records, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return MarkerDiff{}
	}

	next := make(map[string]Marker, len(desired))
	for _, d := range desired {
		next[d.Key] = d
	}

	var diff MarkerDiff
	for _, cur := range m.current {
		if want, ok := next[cur.Key]; !ok || want != cur {
			diff.Removed = append(diff.Removed, cur.Key)
			m.metrics.Markers.WithLabelValues(string(cur.Kind)).Dec()
		}
	}
	for _, d := range desired {
		if cur, ok := m.index[d.Key]; !ok || cur != d {
			diff.Added = append(diff.Added, d)
			m.metrics.Markers.WithLabelValues(string(d.Kind)).Inc()
		}
	}

	m.current = desired
	m.index = next
	m.lastDiff = diff
	return diff
}

// Snapshot returns the tile layer, the current markers in display order and
// the last diff.
func (m *MapView) Snapshot() MapSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MapSnapshot{
		Markers:  append([]Marker(nil), m.current...),
		LastDiff: m.lastDiff,
	}
	if m.tiles != nil {
		snap.Tiles = *m.tiles
	}
	return snap
}

// Close removes every marker and releases the tile layer.
func (m *MapView) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, cur := range m.current {
		m.metrics.Markers.WithLabelValues(string(cur.Kind)).Dec()
	}
	m.current = nil
	m.index = nil
	m.tiles = nil
	m.closed = true
}
