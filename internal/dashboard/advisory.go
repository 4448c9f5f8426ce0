package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

const (
	fallbackAreaError    = "Failed to fetch earthquake data"
	msgUnexpectedAnswer  = "Gemini API returned an unexpected response."
	msgGenerationFailed  = "Failed to generate advice."
	msgAdvisoryDisabled  = "Advisory generation is not configured."
	msgAdvisoryNeedsBoth = "Please enter both latitude and longitude."
)

// AreaDataFetcher fetches the earthquake history around a coordinate.
type AreaDataFetcher interface {
	GetAreaData(ctx context.Context, lat, lon float64) (domain.AreaData, error)
}

// TextGenerator turns a prompt into generated text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	MaxOutputTokens() int
}

// AdvisoryState is a snapshot of the advisory panel.
type AdvisoryState struct {
	Latitude         string
	Longitude        string
	Loading          bool
	Generating       bool
	Error            string
	Advisory         *domain.Advisory
	HighestMagnitude string
	Count            int
	Enabled          bool
}

// AdvisoryPanel fetches area data for a coordinate and turns it into a
// generated safety advisory.
type AdvisoryPanel struct {
	fetcher   AreaDataFetcher
	generator TextGenerator
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	latRaw     string
	lonRaw     string
	seq        sequencer
	data       domain.AreaData
	advisory   *domain.Advisory
	loading    bool
	generating bool
	errMsg     string
}

// NewAdvisoryPanel creates the panel. A nil generator disables generation;
// area data is still fetched and shown.
func NewAdvisoryPanel(fetcher AreaDataFetcher, generator TextGenerator, metrics *observability.Metrics, logger *slog.Logger) *AdvisoryPanel {
	return &AdvisoryPanel{
		fetcher:   fetcher,
		generator: generator,
		metrics:   metrics,
		logger:    logger,
	}
}

// Request fetches area data for the inputs and, when the area has any
// earthquakes or a peak magnitude, generates a new advisory. The previous
// advisory and data are discarded first.
func (a *AdvisoryPanel) Request(ctx context.Context, latRaw, lonRaw string) {
	lat, lon := domain.ParseCoordinate(latRaw), domain.ParseCoordinate(lonRaw)

	a.mu.Lock()
	a.latRaw, a.lonRaw = latRaw, lonRaw
	n := a.seq.next()
	a.data = domain.AreaData{}
	a.advisory = nil
	a.generating = false
	a.errMsg = ""
	if lat == nil || lon == nil {
		a.loading = false
		a.errMsg = msgAdvisoryNeedsBoth
		a.mu.Unlock()
		return
	}
	a.loading = true
	a.mu.Unlock()

	data, err := a.fetcher.GetAreaData(ctx, *lat, *lon)

	a.mu.Lock()
	if !a.seq.latest(n) {
		a.mu.Unlock()
		a.discard("area_data", n)
		return
	}
	a.loading = false
	if err != nil {
		a.logger.Error("failed to fetch area earthquake data", "error", err, "latitude", *lat, "longitude", *lon)
		a.errMsg = domain.UpstreamMessage(err, fallbackAreaError)
		a.mu.Unlock()
		return
	}
	a.data = data
	if len(data.Earthquakes) == 0 && data.HighestMagnitude == nil {
		a.mu.Unlock()
		a.metrics.Advisories.WithLabelValues("skipped").Inc()
		return
	}
	if a.generator == nil {
		a.errMsg = msgAdvisoryDisabled
		a.mu.Unlock()
		a.metrics.Advisories.WithLabelValues("disabled").Inc()
		return
	}
	a.generating = true
	a.mu.Unlock()

	advisory, msg := a.generate(ctx, *lat, *lon, data)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.seq.latest(n) {
		a.discard("advisory", n)
		return
	}
	a.generating = false
	a.advisory = advisory
	a.errMsg = msg
}

// generate runs outside the lock and returns the advisory or a display message.
func (a *AdvisoryPanel) generate(ctx context.Context, lat, lon float64, data domain.AreaData) (*domain.Advisory, string) {
	prompt, err := BuildPrompt(lat, lon, data, a.generator.MaxOutputTokens())
	if err != nil {
		a.logger.Error("failed to build advisory prompt", "error", err)
		a.metrics.Advisories.WithLabelValues("error").Inc()
		return nil, msgGenerationFailed
	}

	text, err := a.generator.Generate(ctx, prompt)
	if err == nil {
		adv := domain.FormatAdvisory(text)
		if !adv.Empty() {
			a.metrics.Advisories.WithLabelValues("success").Inc()
			return &adv, ""
		}
		err = domain.ErrEmptyAdvisory
	}

	if errors.Is(err, domain.ErrEmptyAdvisory) {
		a.logger.Warn("gemini returned an empty response, check the prompt, API key and network connection")
		a.metrics.Advisories.WithLabelValues("empty").Inc()
		return nil, msgUnexpectedAnswer
	}
	a.logger.Error("error generating advice", "error", err)
	a.metrics.Advisories.WithLabelValues("error").Inc()
	return nil, msgGenerationFailed
}

func (a *AdvisoryPanel) discard(view string, n uint64) {
	a.metrics.StaleResponses.WithLabelValues(view).Inc()
	a.logger.Debug("discarding stale response", "view", view, "request", n)
}

// State returns a snapshot of the panel.
func (a *AdvisoryPanel) State() AdvisoryState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := AdvisoryState{
		Latitude:   a.latRaw,
		Longitude:  a.lonRaw,
		Loading:    a.loading,
		Generating: a.generating,
		Error:      a.errMsg,
		Advisory:   a.advisory,
		Count:      len(a.data.Earthquakes),
		Enabled:    a.generator != nil,
	}
	if a.data.HighestMagnitude != nil {
		st.HighestMagnitude = domain.FormatFloat(*a.data.HighestMagnitude)
	}
	return st
}
