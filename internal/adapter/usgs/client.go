// Package usgs fetches earthquake events from the USGS FDSN event service.
package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

// timeLayout is the ISO 8601 form the event service accepts for starttime/endtime.
const timeLayout = "2006-01-02T15:04:05"

// Query holds the event service filters. Nil fields are not sent.
type Query struct {
	StartTime    time.Time
	EndTime      time.Time
	MinMagnitude *float64
	MaxMagnitude *float64
	MinLatitude  *float64
	MaxLatitude  *float64
	MinLongitude *float64
	MaxLongitude *float64
	Limit        *int
	OrderBy      string
}

// Values encodes the query for the event service, always asking for GeoJSON.
func (q Query) Values() url.Values {
	v := url.Values{
		"format":    {"geojson"},
		"starttime": {q.StartTime.UTC().Format(timeLayout)},
		"endtime":   {q.EndTime.UTC().Format(timeLayout)},
	}
	for key, f := range map[string]*float64{
		"minmagnitude": q.MinMagnitude,
		"maxmagnitude": q.MaxMagnitude,
		"minlatitude":  q.MinLatitude,
		"maxlatitude":  q.MaxLatitude,
		"minlongitude": q.MinLongitude,
		"maxlongitude": q.MaxLongitude,
	} {
		if f != nil {
			v.Set(key, domain.FormatFloat(*f))
		}
	}
	if q.Limit != nil {
		v.Set("limit", strconv.Itoa(*q.Limit))
	}
	if q.OrderBy != "" {
		v.Set("orderby", q.OrderBy)
	}
	return v
}

// Client queries the event service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS event service client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchEarthquakes returns the features matching q as earthquake records.
func (c *Client) FetchEarthquakes(ctx context.Context, q Query) ([]domain.EarthquakeRecord, error) {
	records, err := c.fetch(ctx, q)
	if err != nil {
		c.metrics.USGSRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.USGSRequests.WithLabelValues("success").Inc()
	return records, nil
}

func (c *Client) fetch(ctx context.Context, q Query) ([]domain.EarthquakeRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = q.Values().Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: usgs request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read usgs response: %w", domain.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: usgs API error: status %d: %s", domain.ErrTransport, resp.StatusCode, truncate(body, 512))
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode usgs response: %w", domain.ErrMalformedResponse, err)
	}

	records := make([]domain.EarthquakeRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		records = append(records, c.toRecord(f))
	}
	return records, nil
}

func (c *Client) toRecord(f *geojson.Feature) domain.EarthquakeRecord {
	rec := domain.EarthquakeRecord{Type: "Feature"}
	if f.ID != nil {
		rec.ID = fmt.Sprint(f.ID)
	}

	if mag, err := f.PropertyFloat64("mag"); err == nil {
		rec.Properties.Magnitude = mag
	} else {
		c.logger.Debug("usgs feature without magnitude", "record_id", rec.ID)
	}
	rec.Properties.Place = f.PropertyMustString("place", "")
	if ms, err := f.PropertyFloat64("time"); err == nil {
		rec.Properties.Time = int64(ms)
	}

	if f.Geometry != nil {
		rec.Geometry.Type = string(f.Geometry.Type)
		if f.Geometry.IsPoint() {
			rec.Geometry.Coordinates = f.Geometry.Point
		}
	}
	return rec
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
