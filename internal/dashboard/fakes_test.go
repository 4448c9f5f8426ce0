package dashboard

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func ptr(v float64) *float64 { return &v }

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func record(id string, mag, lon, lat float64) domain.EarthquakeRecord {
	return domain.EarthquakeRecord{
		Type: "Feature",
		ID:   id,
		Properties: domain.Properties{
			Magnitude: mag,
			Place:     "Place " + id,
			Time:      1717000000000,
		},
		Geometry: domain.Geometry{Type: "Point", Coordinates: []float64{lon, lat, 10}},
	}
}

type listerFunc func(ctx context.Context, f domain.Filters) ([]domain.EarthquakeRecord, error)

func (fn listerFunc) ListEarthquakes(ctx context.Context, f domain.Filters) ([]domain.EarthquakeRecord, error) {
	return fn(ctx, f)
}

// fakeAPI is an in-memory EarthquakeAPI that records what it was asked.
type fakeAPI struct {
	mu sync.Mutex

	records     []domain.EarthquakeRecord
	listErr     error
	listCalls   int
	lastFilters domain.Filters

	heatmap        []domain.HeatmapPoint
	heatmapFilters domain.Filters

	nearby      []domain.EarthquakeRecord
	nearbyErr   error
	nearbyCalls int

	prediction   domain.Prediction
	predictErr   error
	predictCalls int

	area      domain.AreaData
	areaErr   error
	areaCalls int
}

func (f *fakeAPI) ListEarthquakes(_ context.Context, filters domain.Filters) ([]domain.EarthquakeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastFilters = filters
	return f.records, f.listErr
}

func (f *fakeAPI) ListHeatmapPoints(_ context.Context, filters domain.Filters) ([]domain.HeatmapPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heatmapFilters = filters
	return f.heatmap, nil
}

func (f *fakeAPI) ListNearby(_ context.Context, _, _ float64) ([]domain.EarthquakeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyCalls++
	return f.nearby, f.nearbyErr
}

func (f *fakeAPI) GetPrediction(_ context.Context, _, _ float64) (domain.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictCalls++
	return f.prediction, f.predictErr
}

func (f *fakeAPI) GetAreaData(_ context.Context, _, _ float64) (domain.AreaData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areaCalls++
	return f.area, f.areaErr
}

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func (g *fakeGenerator) MaxOutputTokens() int { return 500 }

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// gate holds a fake call until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	close(g.started)
	<-g.release
}

// gatedAPI answers nearby and area-data calls per latitude, holding the
// latitudes that have a gate.
type gatedAPI struct {
	fakeAPI
	gates       map[float64]*gate
	nearbyByLat map[float64][]domain.EarthquakeRecord
	areaByLat   map[float64]domain.AreaData
}

func (g *gatedAPI) ListNearby(_ context.Context, lat, _ float64) ([]domain.EarthquakeRecord, error) {
	if gt := g.gates[lat]; gt != nil {
		gt.wait()
	}
	return g.nearbyByLat[lat], nil
}

func (g *gatedAPI) GetAreaData(_ context.Context, lat, _ float64) (domain.AreaData, error) {
	if gt := g.gates[lat]; gt != nil {
		gt.wait()
	}
	return g.areaByLat[lat], nil
}

// gatedGenerator answers with the text whose key appears in the prompt,
// holding prompts that match a gated key.
type gatedGenerator struct {
	gates map[string]*gate
	texts map[string]string
}

func (g *gatedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	for key, gt := range g.gates {
		if strings.Contains(prompt, key) {
			gt.wait()
		}
	}
	for key, text := range g.texts {
		if strings.Contains(prompt, key) {
			return text, nil
		}
	}
	return "", domain.ErrEmptyAdvisory
}

func (g *gatedGenerator) MaxOutputTokens() int { return 500 }
