package dashboard

import (
	"fmt"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

const (
	emptyListMessage   = "No earthquakes found."
	emptyNearbyMessage = "No nearby earthquakes found in the last month."

	entryTimeLayout = "2006-01-02, 3:04 PM"
)

// ListEntry is one rendered earthquake row.
type ListEntry struct {
	ID        string
	Place     string
	Magnitude string
	Band      domain.Band
	Color     string
	Severe    bool
	Time      string
	Depth     string
	Distance  string
	Warning   string
}

// ListView is the rendered earthquake list.
type ListView struct {
	Entries      []ListEntry
	EmptyMessage string
}

// Empty reports whether the empty-state message should be shown.
func (v ListView) Empty() bool {
	return len(v.Entries) == 0
}

// RenderList renders one entry per record, in order.
func RenderList(records []domain.EarthquakeRecord) ListView {
	return renderList(records, emptyListMessage)
}

func renderList(records []domain.EarthquakeRecord, emptyMessage string) ListView {
	view := ListView{EmptyMessage: emptyMessage}
	if len(records) == 0 {
		return view
	}

	view.Entries = make([]ListEntry, 0, len(records))
	for _, r := range records {
		band := domain.BandFor(r.Properties.Magnitude)
		entry := ListEntry{
			ID:        r.ID,
			Place:     r.Properties.Place,
			Magnitude: fmt.Sprintf("%.1f", r.Properties.Magnitude),
			Band:      band,
			Color:     band.Color(),
			Severe:    band == domain.BandSevere,
			Time:      r.Properties.OccurredAt().Format(entryTimeLayout),
			Warning:   r.Properties.Warning,
		}
		if depth, ok := r.Geometry.Depth(); ok {
			entry.Depth = fmt.Sprintf("%.1f km", depth)
		}
		// A zero distance is not shown.
		if d := r.Properties.DistanceKm; d != nil && *d != 0 {
			entry.Distance = fmt.Sprintf("%.2f km", *d)
		}
		view.Entries = append(view.Entries, entry)
	}
	return view
}
