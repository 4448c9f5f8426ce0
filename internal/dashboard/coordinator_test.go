package dashboard

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_InitFetchesOnce(t *testing.T) {
	api := &fakeAPI{records: []domain.EarthquakeRecord{record("a", 3, 1, 2)}}
	c := NewCoordinator(api, testMetrics(), testLogger)

	c.Init(context.Background())
	c.Init(context.Background())

	assert.Equal(t, 1, api.listCalls)
	st := c.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Len(t, st.Records, 1)
}

func TestCoordinator_SetFilters(t *testing.T) {
	api := &fakeAPI{}
	c := NewCoordinator(api, testMetrics(), testLogger)
	c.Init(context.Background())

	loc := domain.NewUserLocation(ptr(34.05), ptr(-118.25))
	mag := domain.MagnitudeFilter{Min: ptr(3)}

	assert.True(t, c.SetFilters(context.Background(), loc, mag))
	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, "34.05", api.lastFilters.Query().Get("user_latitude"))
	assert.Equal(t, "3", api.lastFilters.Query().Get("minmagnitude"))

	assert.False(t, c.SetFilters(context.Background(), domain.NewUserLocation(ptr(34.05), ptr(-118.25)), domain.MagnitudeFilter{Min: ptr(3)}))
	assert.Equal(t, 2, api.listCalls)
}

func TestCoordinator_OnlyFiniteFiltersForwarded(t *testing.T) {
	api := &fakeAPI{}
	c := NewCoordinator(api, testMetrics(), testLogger)

	loc := domain.UserLocation{Latitude: ptr(math.NaN()), Longitude: ptr(10)}
	c.SetFilters(context.Background(), loc, domain.MagnitudeFilter{Min: ptr(math.Inf(1)), Max: ptr(7)})

	q := api.lastFilters.Query()
	assert.False(t, q.Has("user_latitude"))
	assert.False(t, q.Has("user_longitude"))
	assert.False(t, q.Has("minmagnitude"))
	assert.Equal(t, "7", q.Get("maxmagnitude"))
}

func TestCoordinator_ErrorThenRecovery(t *testing.T) {
	api := &fakeAPI{listErr: &domain.UpstreamError{Operation: "list", StatusCode: 503, Message: "Service unavailable"}}
	c := NewCoordinator(api, testMetrics(), testLogger)

	c.Init(context.Background())
	st := c.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "Service unavailable", st.Error)

	api.listErr = nil
	api.records = []domain.EarthquakeRecord{record("b", 5, 1, 1)}
	c.Refresh(context.Background())

	st = c.State()
	assert.Empty(t, st.Error)
	assert.Len(t, st.Records, 1)
}

func TestCoordinator_ErrorDropsPreviousRecords(t *testing.T) {
	api := &fakeAPI{records: []domain.EarthquakeRecord{record("a", 3, 1, 1)}}
	c := NewCoordinator(api, testMetrics(), testLogger)
	c.Init(context.Background())
	require.Len(t, c.State().Records, 1)

	api.listErr = errors.New("connection refused")
	c.Refresh(context.Background())

	st := c.State()
	assert.Equal(t, "connection refused", st.Error)
	assert.Empty(t, st.Records)
}

func TestCoordinator_DiscardsStaleResponse(t *testing.T) {
	stale := []domain.EarthquakeRecord{record("stale", 2, 1, 1)}
	fresh := []domain.EarthquakeRecord{record("fresh", 6.5, 2, 2)}

	release := make(chan struct{})
	var calls atomic.Int32
	lister := listerFunc(func(_ context.Context, _ domain.Filters) ([]domain.EarthquakeRecord, error) {
		if calls.Add(1) == 1 {
			<-release
			return stale, nil
		}
		return fresh, nil
	})

	metrics := testMetrics()
	c := NewCoordinator(lister, metrics, testLogger)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		c.SetFilters(context.Background(), domain.UserLocation{}, domain.MagnitudeFilter{Min: ptr(1)})
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.State().Loading)

	// The second request is answered before the first.
	c.SetFilters(context.Background(), domain.UserLocation{}, domain.MagnitudeFilter{Min: ptr(5)})
	st := c.State()
	assert.False(t, st.Loading)
	require.Len(t, st.Records, 1)
	assert.Equal(t, "fresh", st.Records[0].ID)

	close(release)
	<-firstDone

	st = c.State()
	require.Len(t, st.Records, 1)
	assert.Equal(t, "fresh", st.Records[0].ID)
	assert.Equal(t, 5.0, *st.Magnitude.Min)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StaleResponses.WithLabelValues("coordinator")))
}

func TestCoordinator_LoadingHeldUntilLatestCompletes(t *testing.T) {
	releaseSecond := make(chan struct{})
	var calls atomic.Int32
	lister := listerFunc(func(_ context.Context, _ domain.Filters) ([]domain.EarthquakeRecord, error) {
		if calls.Add(1) == 2 {
			<-releaseSecond
		}
		return nil, nil
	})
	c := NewCoordinator(lister, testMetrics(), testLogger)

	c.Init(context.Background())
	assert.False(t, c.State().Loading)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, c.State().Loading)

	close(releaseSecond)
	<-done
	assert.False(t, c.State().Loading)
}
