package domain

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("lat", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		lat := fl.Field().Float()
		return lat >= -90 && lat <= 90
	})
	validate.RegisterValidation("lng", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		lng := fl.Field().Float()
		return lng >= -180 && lng <= 180
	})
	validate.RegisterValidation("magnitude", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		mag := fl.Field().Float()
		return mag >= -2 && mag <= 10
	})
}

// UserLocation is the point the user asked to center queries on. Both
// components are set or both are nil.
type UserLocation struct {
	Latitude  *float64
	Longitude *float64
}

// NewUserLocation keeps the pair only when both values are present.
func NewUserLocation(lat, lon *float64) UserLocation {
	if lat == nil || lon == nil {
		return UserLocation{}
	}
	return UserLocation{Latitude: lat, Longitude: lon}
}

// Coordinates returns the pair and whether both components are finite.
func (l UserLocation) Coordinates() (lat, lon float64, ok bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	if !IsFinite(*l.Latitude) || !IsFinite(*l.Longitude) {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// Equal reports whether both locations hold the same values.
func (l UserLocation) Equal(o UserLocation) bool {
	return floatPtrEqual(l.Latitude, o.Latitude) && floatPtrEqual(l.Longitude, o.Longitude)
}

// MagnitudeFilter bounds the magnitude range. A nil bound means unbounded.
type MagnitudeFilter struct {
	Min *float64
	Max *float64
}

// Equal reports whether both filters hold the same bounds.
func (m MagnitudeFilter) Equal(o MagnitudeFilter) bool {
	return floatPtrEqual(m.Min, o.Min) && floatPtrEqual(m.Max, o.Max)
}

// Filters is the validated parameter set for list and heatmap queries. Every
// recognized query key has a field here; nothing else is forwarded.
type Filters struct {
	UserLatitude  *float64 `validate:"omitempty,lat"`
	UserLongitude *float64 `validate:"omitempty,lng"`
	MinMagnitude  *float64 `validate:"omitempty,magnitude"`
	MaxMagnitude  *float64 `validate:"omitempty,magnitude"`
}

// NewFilters builds Filters from the coordinator state, dropping any value
// that is not a finite number. The location is dropped as a pair.
func NewFilters(loc UserLocation, mag MagnitudeFilter, logger *slog.Logger) Filters {
	var f Filters

	if loc.Latitude != nil && loc.Longitude != nil {
		if lat, lon, ok := loc.Coordinates(); ok {
			f.UserLatitude = &lat
			f.UserLongitude = &lon
		} else {
			logger.Warn("invalid latitude or longitude, location not sent in request")
		}
	}

	if mag.Min != nil {
		if IsFinite(*mag.Min) {
			v := *mag.Min
			f.MinMagnitude = &v
		} else {
			logger.Warn("invalid minimum magnitude, not sent in request")
		}
	}
	if mag.Max != nil {
		if IsFinite(*mag.Max) {
			v := *mag.Max
			f.MaxMagnitude = &v
		} else {
			logger.Warn("invalid maximum magnitude, not sent in request")
		}
	}

	return f
}

// Validate range-checks every set field.
func (f Filters) Validate() error {
	if (f.UserLatitude == nil) != (f.UserLongitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if f.MinMagnitude != nil && f.MaxMagnitude != nil && *f.MinMagnitude > *f.MaxMagnitude {
		return fmt.Errorf("%w: minimum magnitude %g exceeds maximum %g", ErrInvalidInput, *f.MinMagnitude, *f.MaxMagnitude)
	}
	return nil
}

// Query encodes the set fields as request parameters.
func (f Filters) Query() url.Values {
	q := url.Values{}
	setFloat(q, "user_latitude", f.UserLatitude)
	setFloat(q, "user_longitude", f.UserLongitude)
	setFloat(q, "minmagnitude", f.MinMagnitude)
	setFloat(q, "maxmagnitude", f.MaxMagnitude)
	return q
}

// coordinate is the validation shape for required coordinate pairs.
type coordinate struct {
	Latitude  float64 `validate:"lat"`
	Longitude float64 `validate:"lng"`
}

// ValidateCoordinates checks a required latitude/longitude pair.
func ValidateCoordinates(lat, lon float64) error {
	if !IsFinite(lat) || !IsFinite(lon) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidInput)
	}
	if err := validate.Struct(coordinate{Latitude: lat, Longitude: lon}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ParseCoordinate reads a numeric form value. Blank, non-numeric and
// non-finite input all count as absent rather than zero.
func ParseCoordinate(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !IsFinite(v) {
		return nil
	}
	return &v
}

// FormatFloat renders v the way it is sent on the wire.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func setFloat(q url.Values, key string, v *float64) {
	if v == nil || !IsFinite(*v) {
		return
	}
	q.Set(key, FormatFloat(*v))
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
