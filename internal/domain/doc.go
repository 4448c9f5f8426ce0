// Package domain models the earthquake data consumed by the dashboard.
//
// # Records
//
// Records arrive from the earthquake API as GeoJSON-style features:
//
//	{"type":"Feature","id":"us7000abcd",
//	 "properties":{"mag":4.6,"place":"10 km SW of Ridgecrest, CA","time":1714150200000,
//	               "distance_km":12.4,"warning":"Aftershocks likely"},
//	 "geometry":{"type":"Point","coordinates":[-117.6,35.7,8.2]}}
//
// Coordinates follow GeoJSON order: longitude, latitude, then optional depth
// in kilometers. Time is Unix epoch milliseconds. distance_km and warning are
// only present when the backend computed them for a query point.
//
// A record is only drawn on the map when both longitude and latitude are
// present and finite; see [Geometry.LonLat].
//
// # Severity bands
//
// List entries are color-coded by magnitude:
//
//	mag > 6  red    (also tagged "Severe")
//	mag > 4  orange
//	else     green
//
// Boundary values fall in the lower band: exactly 6 is orange, exactly 4 is green.
//
// # Filters
//
// Outgoing filter parameters are built from a [UserLocation] and a
// [MagnitudeFilter]. Non-finite values are dropped before the request is
// built and the remaining values are range-checked; see [NewFilters] and
// [Filters.Validate].
//
// # Predictions
//
// The prediction service sometimes returns a time that has already passed.
// Such predictions are moved to one day after the current time before they
// are shown; see [SanitizePrediction].
package domain
