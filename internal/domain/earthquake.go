package domain

import (
	"math"
	"time"
)

// Properties carries the descriptive fields of an earthquake record.
type Properties struct {
	Magnitude  float64  `json:"mag"`
	Place      string   `json:"place"`
	Time       int64    `json:"time"`                  // Unix epoch milliseconds
	DistanceKm *float64 `json:"distance_km,omitempty"` // set for location-aware queries
	Warning    string   `json:"warning,omitempty"`
}

// OccurredAt returns the event time in UTC.
func (p Properties) OccurredAt() time.Time {
	return time.UnixMilli(p.Time).UTC()
}

// Geometry is a GeoJSON point: [longitude, latitude, depth?].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LonLat returns the epicenter and whether both components are present and finite.
func (g Geometry) LonLat() (lon, lat float64, ok bool) {
	if len(g.Coordinates) < 2 {
		return 0, 0, false
	}
	lon, lat = g.Coordinates[0], g.Coordinates[1]
	if !IsFinite(lon) || !IsFinite(lat) {
		return 0, 0, false
	}
	return lon, lat, true
}

// Depth returns the hypocenter depth in kilometers when present.
func (g Geometry) Depth() (float64, bool) {
	if len(g.Coordinates) < 3 || !IsFinite(g.Coordinates[2]) {
		return 0, false
	}
	return g.Coordinates[2], true
}

// EarthquakeRecord is one event as returned by the earthquake API. Records are
// treated as immutable; views replace whole slices instead of editing them.
type EarthquakeRecord struct {
	Type       string     `json:"type,omitempty"`
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
	Geometry   Geometry   `json:"geometry"`
}

// HeatmapPoint is a single weighted point for the heatmap layer.
type HeatmapPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Magnitude float64 `json:"magnitude"`
}

// AreaData is the earthquake history around a coordinate used to build advisories.
type AreaData struct {
	Earthquakes      []EarthquakeRecord `json:"earthquakes"`
	HighestMagnitude *float64           `json:"highest_magnitude"`
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
