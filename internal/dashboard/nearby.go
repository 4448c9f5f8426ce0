package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

const (
	msgEnterBoth        = "Please enter both latitude and longitude."
	msgSubmitFirst      = "Please submit location first."
	fallbackNearbyError = "Failed to load nearby earthquake data"
	fallbackPredictErr  = "Failed to load earthquake prediction"

	predictionTimeLayout = "2006-01-02 3:04 PM UTC"
)

// ErrPredictionDisabled is returned by Predict when the predict action is not
// available for the current panel state.
var ErrPredictionDisabled = errors.New("prediction unavailable")

// NearbyFinder finds earthquakes near a point and predicts the next one.
type NearbyFinder interface {
	ListNearby(ctx context.Context, lat, lon float64) ([]domain.EarthquakeRecord, error)
	GetPrediction(ctx context.Context, lat, lon float64) (domain.Prediction, error)
}

// PredictionView is a prediction formatted for display.
type PredictionView struct {
	Time      string
	Magnitude string
	Adjusted  bool
}

// NearbyState is a snapshot of the nearby panel.
type NearbyState struct {
	Latitude  string
	Longitude string
	Submitted bool

	List    ListView
	Loading bool
	Error   string

	Prediction        *PredictionView
	PredictionLoading bool
	PredictionError   string
	CanPredict        bool
}

// NearbyPanel runs the nearby search and the prediction workflows for one
// submitted coordinate pair. The two workflows keep separate loading and
// error state.
type NearbyPanel struct {
	finder  NearbyFinder
	metrics *observability.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	latitude  *float64
	longitude *float64
	submitted domain.UserLocation

	listSeq sequencer
	records []domain.EarthquakeRecord
	loading bool
	errMsg  string

	predSeq           sequencer
	prediction        *domain.Prediction
	adjusted          bool
	predictionLoading bool
	predictionErr     string
}

// NewNearbyPanel creates an empty panel.
func NewNearbyPanel(finder NearbyFinder, metrics *observability.Metrics, logger *slog.Logger) *NearbyPanel {
	return &NearbyPanel{
		finder:  finder,
		metrics: metrics,
		logger:  logger,
	}
}

// Submit parses the raw inputs and, when both are numbers, fetches the
// earthquakes near them. Non-numeric input counts as empty. With both inputs
// empty the records and prediction are cleared.
func (p *NearbyPanel) Submit(ctx context.Context, latRaw, lonRaw string) {
	lat, lon := domain.ParseCoordinate(latRaw), domain.ParseCoordinate(lonRaw)

	p.mu.Lock()
	p.latitude, p.longitude = lat, lon
	if lat == nil || lon == nil {
		if lat == nil && lon == nil {
			// Requests still in flight belong to the cleared location.
			p.listSeq.next()
			p.predSeq.next()
			p.records = nil
			p.loading = false
			p.prediction = nil
			p.predictionLoading = false
			p.predictionErr = ""
			p.submitted = domain.UserLocation{}
		}
		p.errMsg = msgEnterBoth
		p.mu.Unlock()
		return
	}
	p.submitted = domain.NewUserLocation(lat, lon)
	// A prediction in flight belongs to the previous location.
	p.predSeq.next()
	p.prediction = nil
	p.predictionLoading = false
	p.predictionErr = ""
	n := p.listSeq.next()
	p.loading = true
	p.errMsg = ""
	p.mu.Unlock()

	records, err := p.finder.ListNearby(ctx, *lat, *lon)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.listSeq.latest(n) {
		p.metrics.StaleResponses.WithLabelValues("nearby").Inc()
		p.logger.Debug("discarding stale nearby response", "request", n, "latest", p.listSeq.last)
		return
	}
	p.loading = false
	if err != nil {
		p.logger.Error("failed to fetch nearby earthquake data", "error", err, "latitude", *lat, "longitude", *lon)
		p.errMsg = domain.DisplayMessage(err, fallbackNearbyError)
		return
	}
	p.records = records
}

// Predict fetches a prediction for the submitted coordinates. It returns
// ErrPredictionDisabled without a request when the action is unavailable.
func (p *NearbyPanel) Predict(ctx context.Context) error {
	p.mu.Lock()
	lat, lon, ok := p.submitted.Coordinates()
	if !ok {
		p.errMsg = msgSubmitFirst
		p.mu.Unlock()
		return fmt.Errorf("%w: no submitted location", ErrPredictionDisabled)
	}
	if !p.canPredictLocked() {
		p.mu.Unlock()
		return fmt.Errorf("%w: need at least two nearby earthquakes", ErrPredictionDisabled)
	}
	n := p.predSeq.next()
	p.predictionLoading = true
	p.predictionErr = ""
	p.mu.Unlock()

	prediction, err := p.finder.GetPrediction(ctx, lat, lon)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.predSeq.latest(n) {
		p.metrics.StaleResponses.WithLabelValues("prediction").Inc()
		p.logger.Debug("discarding stale prediction response", "request", n, "latest", p.predSeq.last)
		return nil
	}
	p.predictionLoading = false
	if err != nil {
		p.logger.Error("failed to fetch earthquake prediction", "error", err)
		p.predictionErr = domain.DisplayMessage(err, fallbackPredictErr)
		p.prediction = nil
		return nil
	}

	sanitized, adjusted := domain.SanitizePrediction(prediction, domain.Now())
	if adjusted {
		p.logger.Warn("prediction time is in the past, adjusting to the future",
			"predicted_time", prediction.PredictedTime, "adjusted_time", sanitized.PredictedTime)
	}
	p.prediction = &sanitized
	p.adjusted = adjusted
	return nil
}

// State returns a snapshot of the panel.
func (p *NearbyPanel) State() NearbyState {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := NearbyState{
		Latitude:          formatInput(p.latitude),
		Longitude:         formatInput(p.longitude),
		Submitted:         p.submitted.Latitude != nil,
		List:              renderList(p.records, emptyNearbyMessage),
		Loading:           p.loading,
		Error:             p.errMsg,
		PredictionLoading: p.predictionLoading,
		PredictionError:   p.predictionErr,
		CanPredict:        p.canPredictLocked(),
	}
	if p.prediction != nil {
		st.Prediction = &PredictionView{
			Time:      p.prediction.PredictedTime.UTC().Format(predictionTimeLayout),
			Magnitude: fmt.Sprintf("%.2f", p.prediction.PredictedMagnitude),
			Adjusted:  p.adjusted,
		}
	}
	return st
}

func (p *NearbyPanel) canPredictLocked() bool {
	_, _, ok := p.submitted.Coordinates()
	return ok && len(p.records) >= 2 && !p.predictionLoading
}

func formatInput(v *float64) string {
	if v == nil {
		return ""
	}
	return domain.FormatFloat(*v)
}
