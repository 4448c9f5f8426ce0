package proxyapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/quake-dashboard/internal/adapter/usgs"
	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

var orderings = map[string]bool{
	"time":          true,
	"time-asc":      true,
	"magnitude":     true,
	"magnitude-asc": true,
}

// listEarthquakes forwards the query to the event service. user_latitude and
// user_longitude are accepted and ignored.
func (s *Server) listEarthquakes(c *gin.Context) {
	q, err := s.parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameter type: " + err.Error()})
		return
	}

	records, err := s.fetcher.FetchEarthquakes(c.Request.Context(), q)
	if err != nil {
		s.logger.Error("failed to fetch earthquakes from usgs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not retrieve earthquake data"})
		return
	}
	if records == nil {
		records = []domain.EarthquakeRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) parseQuery(c *gin.Context) (usgs.Query, error) {
	var q usgs.Query

	start, startOK, err := timeParam(c, "starttime")
	if err != nil {
		return q, err
	}
	end, endOK, err := timeParam(c, "endtime")
	if err != nil {
		return q, err
	}
	if startOK && endOK {
		q.StartTime, q.EndTime = start, end
	} else {
		now := domain.Now().UTC()
		q.StartTime, q.EndTime = now.Add(-s.window), now
	}

	for name, dst := range map[string]**float64{
		"minmagnitude": &q.MinMagnitude,
		"maxmagnitude": &q.MaxMagnitude,
		"minlatitude":  &q.MinLatitude,
		"maxlatitude":  &q.MaxLatitude,
		"minlongitude": &q.MinLongitude,
		"maxlongitude": &q.MaxLongitude,
	} {
		raw, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !domain.IsFinite(v) {
			return q, fmt.Errorf("%s must be a number, got %q", name, raw)
		}
		*dst = &v
	}

	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("limit must be an integer, got %q", raw)
		}
		q.Limit = &n
	}

	if raw, ok := c.GetQuery("orderby"); ok {
		if !orderings[raw] {
			return q, fmt.Errorf("orderby must be one of time, time-asc, magnitude, magnitude-asc, got %q", raw)
		}
		q.OrderBy = raw
	}
	return q, nil
}

func timeParam(c *gin.Context, name string) (t time.Time, ok bool, err error) {
	raw := c.Query(name)
	if raw == "" {
		return t, false, nil
	}
	t, err = domain.ParseTimestamp(raw)
	if err != nil {
		return t, false, fmt.Errorf("%s must be an ISO 8601 time, got %q", name, raw)
	}
	return t, true, nil
}
