package quakeapi

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"

	sampleRecords = `[
		{"type":"Feature","id":"ci40001","properties":{"mag":4.6,"place":"12 km SW of Ridgecrest, CA","time":1717000000000,"distance_km":3.21},"geometry":{"type":"Point","coordinates":[-117.75,35.55,7.1]}},
		{"type":"Feature","id":"nc70002","properties":{"mag":2.1,"place":"5 km N of The Geysers, CA","time":1717000100000,"warning":"Aftershock sequence"},"geometry":{"type":"Point","coordinates":[-122.8,38.8]}}
	]`
)

func ptr(v float64) *float64 { return &v }

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func jsonHandler(t *testing.T, status int, body string, check func(r *http.Request)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestClient_ListEarthquakes_Success(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, sampleRecords, func(r *http.Request) {
		assert.Equal(t, "/api/earthquakes", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "35.5", q.Get("user_latitude"))
		assert.Equal(t, "-117.7", q.Get("user_longitude"))
		assert.Equal(t, "2", q.Get("minmagnitude"))
		assert.False(t, q.Has("maxmagnitude"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	filters := domain.Filters{UserLatitude: ptr(35.5), UserLongitude: ptr(-117.7), MinMagnitude: ptr(2)}
	records, err := c.ListEarthquakes(context.Background(), filters)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "ci40001", records[0].ID)
	assert.Equal(t, 4.6, records[0].Properties.Magnitude)
	require.NotNil(t, records[0].Properties.DistanceKm)
	assert.Equal(t, 3.21, *records[0].Properties.DistanceKm)
	assert.Equal(t, "Aftershock sequence", records[1].Properties.Warning)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(OpList, "success")))
}

func TestClient_ListEarthquakes_NoFiltersSendsNoQuery(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `[]`, func(r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).ListEarthquakes(context.Background(), domain.Filters{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_ListEarthquakes_InvalidFilters(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := testClient(srv.URL).ListEarthquakes(context.Background(), domain.Filters{MinMagnitude: ptr(5), MaxMagnitude: ptr(1)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, called)
}

func TestClient_ListHeatmapPoints(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `[{"latitude":35.5,"longitude":-117.7,"magnitude":4.6}]`, func(r *http.Request) {
		assert.Equal(t, "/api/earthquakes/heatmap", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("maxmagnitude"))
	}))
	defer srv.Close()

	points, err := testClient(srv.URL).ListHeatmapPoints(context.Background(), domain.Filters{MaxMagnitude: ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, []domain.HeatmapPoint{{Latitude: 35.5, Longitude: -117.7, Magnitude: 4.6}}, points)
}

func TestClient_ListNearby(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, sampleRecords, func(r *http.Request) {
		assert.Equal(t, "/api/earthquakes/nearby", r.URL.Path)
		assert.Equal(t, "34.05", r.URL.Query().Get("latitude"))
		assert.Equal(t, "-118.25", r.URL.Query().Get("longitude"))
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).ListNearby(context.Background(), 34.05, -118.25)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestClient_ListNearby_InvalidCoordinates(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	_, err := c.ListNearby(context.Background(), math.NaN(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = c.ListNearby(context.Background(), 0, 500)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_GetPrediction(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"predicted_time":"2030-01-02T03:04:05","predicted_magnitude":5.2}`, func(r *http.Request) {
		assert.Equal(t, "/api/earthquakes/predict", r.URL.Path)
	}))
	defer srv.Close()

	p, err := testClient(srv.URL).GetPrediction(context.Background(), 34.05, -118.25)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), p.PredictedTime)
	assert.Equal(t, 5.2, p.PredictedMagnitude)
}

func TestClient_GetPrediction_Malformed(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"predicted_time":"later","predicted_magnitude":5.2}`, nil))
	defer srv.Close()

	_, err := testClient(srv.URL).GetPrediction(context.Background(), 34.05, -118.25)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_GetAreaData(t *testing.T) {
	t.Run("highest magnitude present", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"earthquakes":`+sampleRecords+`,"highest_magnitude":4.6}`, func(r *http.Request) {
			assert.Equal(t, "/api/earthquakes/data", r.URL.Path)
		}))
		defer srv.Close()

		data, err := testClient(srv.URL).GetAreaData(context.Background(), 35.5, -117.7)
		require.NoError(t, err)
		assert.Len(t, data.Earthquakes, 2)
		require.NotNil(t, data.HighestMagnitude)
		assert.Equal(t, 4.6, *data.HighestMagnitude)
	})

	t.Run("null highest with earthquakes becomes zero", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"earthquakes":`+sampleRecords+`,"highest_magnitude":null}`, nil))
		defer srv.Close()

		data, err := testClient(srv.URL).GetAreaData(context.Background(), 35.5, -117.7)
		require.NoError(t, err)
		require.NotNil(t, data.HighestMagnitude)
		assert.Equal(t, 0.0, *data.HighestMagnitude)
	})

	t.Run("empty area stays without highest", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `{"earthquakes":[],"highest_magnitude":null}`, nil))
		defer srv.Close()

		data, err := testClient(srv.URL).GetAreaData(context.Background(), 35.5, -117.7)
		require.NoError(t, err)
		assert.Empty(t, data.Earthquakes)
		assert.Nil(t, data.HighestMagnitude)
	})
}

func TestClient_UpstreamErrorMessage(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusBadRequest, `{"error":"Latitude and longitude are required"}`, nil))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GetAreaData(context.Background(), 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.Equal(t, "Latitude and longitude are required", upstream.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(OpAreaData, "error")))
}

func TestClient_ServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusInternalServerError, ``, nil))
	defer srv.Close()

	_, err := testClient(srv.URL).ListNearby(context.Background(), 1, 2)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, "nearby: status 500", err.Error())
}

func TestClient_EmptyBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, ``, nil))
	defer srv.Close()

	_, err := testClient(srv.URL).ListEarthquakes(context.Background(), domain.Filters{})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).ListEarthquakes(context.Background(), domain.Filters{})
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_CheckReadiness(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, `[]`, nil))
	defer srv.Close()

	c := testClient(srv.URL)
	require.Error(t, c.CheckReadiness(context.Background()))

	_, err := c.ListEarthquakes(context.Background(), domain.Filters{})
	require.NoError(t, err)
	assert.NoError(t, c.CheckReadiness(context.Background()))
}
