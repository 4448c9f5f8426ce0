// Package quakeapi is the client for the earthquake HTTP API consumed by the
// dashboard: listing, heatmap, nearby search, prediction, and area history.
package quakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

// Operation names, used as the metrics label and in error messages.
const (
	OpList     = "list"
	OpHeatmap  = "heatmap"
	OpNearby   = "nearby"
	OpPredict  = "predict"
	OpAreaData = "area_data"
)

const basePath = "/api/earthquakes"

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Client issues read-only requests against the earthquake API. It neither
// caches nor deduplicates requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger

	// answered flips once any request got a 2xx response.
	answered atomic.Bool
}

// NewClient creates a client rooted at baseURL (scheme and host, no path).
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// ListEarthquakes returns the records matching the validated filters.
func (c *Client) ListEarthquakes(ctx context.Context, f domain.Filters) ([]domain.EarthquakeRecord, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var records []domain.EarthquakeRecord
	if err := c.getJSON(ctx, OpList, basePath, f.Query(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListHeatmapPoints returns weighted points for the heatmap layer.
func (c *Client) ListHeatmapPoints(ctx context.Context, f domain.Filters) ([]domain.HeatmapPoint, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var points []domain.HeatmapPoint
	if err := c.getJSON(ctx, OpHeatmap, basePath+"/heatmap", f.Query(), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// ListNearby returns the records the API considers near the coordinate. The
// radius and time window are decided by the API.
func (c *Client) ListNearby(ctx context.Context, lat, lon float64) ([]domain.EarthquakeRecord, error) {
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	var records []domain.EarthquakeRecord
	if err := c.getJSON(ctx, OpNearby, basePath+"/nearby", coordinateQuery(lat, lon), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetPrediction returns the forecast for the coordinate. The time is returned
// as sent; callers sanitize it for display.
func (c *Client) GetPrediction(ctx context.Context, lat, lon float64) (domain.Prediction, error) {
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return domain.Prediction{}, err
	}
	var p domain.Prediction
	if err := c.getJSON(ctx, OpPredict, basePath+"/predict", coordinateQuery(lat, lon), &p); err != nil {
		return domain.Prediction{}, err
	}
	return p, nil
}

// GetAreaData returns the earthquake history around the coordinate. A missing
// highest magnitude is reported as zero when any earthquakes came back.
func (c *Client) GetAreaData(ctx context.Context, lat, lon float64) (domain.AreaData, error) {
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return domain.AreaData{}, err
	}
	var data domain.AreaData
	if err := c.getJSON(ctx, OpAreaData, basePath+"/data", coordinateQuery(lat, lon), &data); err != nil {
		return domain.AreaData{}, err
	}
	if data.HighestMagnitude == nil && len(data.Earthquakes) > 0 {
		zero := 0.0
		data.HighestMagnitude = &zero
	}
	return data, nil
}

// CheckReadiness reports ready once the API has answered at least one request.
func (c *Client) CheckReadiness(_ context.Context) error {
	if !c.answered.Load() {
		return errors.New("earthquake API has not answered yet")
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	start := time.Now()
	err := c.doGet(ctx, op, path, q, out)
	c.metrics.APIRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.APIRequests.WithLabelValues(op, "error").Inc()
		c.logger.Error("earthquake api request failed", "operation", op, "error", err)
		return err
	}
	c.metrics.APIRequests.WithLabelValues(op, "success").Inc()
	c.answered.Store(true)
	return nil
}

func (c *Client) doGet(ctx context.Context, op, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request: %w", domain.ErrTransport, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.UpstreamError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    errorField(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) {
			return err
		}
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrMalformedResponse, op, err)
	}
	return nil
}

// errorField extracts {"error": "..."} from an error body.
func errorField(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func coordinateQuery(lat, lon float64) url.Values {
	return url.Values{
		"latitude":  {domain.FormatFloat(lat)},
		"longitude": {domain.FormatFloat(lon)},
	}
}
