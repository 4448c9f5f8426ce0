package domain

// Band is the magnitude color band of a list entry.
type Band string

const (
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandSevere   Band = "severe"
)

// BandFor maps a magnitude to its band. Thresholds are strict: 6.0 is
// moderate and 4.0 is low.
func BandFor(magnitude float64) Band {
	switch {
	case magnitude > 6:
		return BandSevere
	case magnitude > 4:
		return BandModerate
	default:
		return BandLow
	}
}

// Color returns the display color of the band.
func (b Band) Color() string {
	switch b {
	case BandSevere:
		return "red"
	case BandModerate:
		return "orange"
	default:
		return "green"
	}
}
