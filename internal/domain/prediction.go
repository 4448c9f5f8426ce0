package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are the ISO 8601 shapes the prediction service emits.
// Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Prediction is a forecast of the next earthquake near a submitted location.
type Prediction struct {
	PredictedTime      time.Time
	PredictedMagnitude float64
}

type predictionJSON struct {
	PredictedTime      string   `json:"predicted_time"`
	PredictedMagnitude *float64 `json:"predicted_magnitude"`
}

func (p *Prediction) UnmarshalJSON(data []byte) error {
	var raw predictionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: prediction: %w", ErrMalformedResponse, err)
	}
	if raw.PredictedMagnitude == nil {
		return fmt.Errorf("%w: prediction: predicted_magnitude missing", ErrMalformedResponse)
	}
	t, err := ParseTimestamp(raw.PredictedTime)
	if err != nil {
		return fmt.Errorf("%w: prediction: %w", ErrMalformedResponse, err)
	}
	p.PredictedTime = t
	p.PredictedMagnitude = *raw.PredictedMagnitude
	return nil
}

// ParseTimestamp parses an ISO 8601 timestamp with or without an offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SanitizePrediction moves a predicted time that is not strictly after now to
// one day after now. The second return value reports whether it was moved.
func SanitizePrediction(p Prediction, now time.Time) (Prediction, bool) {
	if p.PredictedTime.After(now) {
		return p, false
	}
	p.PredictedTime = now.AddDate(0, 0, 1)
	return p, true
}
