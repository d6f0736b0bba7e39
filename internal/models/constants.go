package models

// Media type constants. Values match the media_type column of conversion_items.
const (
	MediaTypeLivestream int16 = 0
	MediaTypeMovie      int16 = 1
	MediaTypeSeries     int16 = 2
)

// Fixed group labels.
const (
	GroupLiveTV = "Live TV"
	GroupMovies = "Movies"
	GroupSeries = "Series"
)

// EnumerationMode selects how VOD catalogs are walked.
type EnumerationMode string

const (
	// ModeCategory paginates every VOD category separately and labels items
	// "Movies – <category>".
	ModeCategory EnumerationMode = "category"
	// ModeFlat sweeps the whole catalog once with category=* and labels items
	// with the bare kind.
	ModeFlat EnumerationMode = "flat"
)

// Valid reports whether m is a known mode.
func (m EnumerationMode) Valid() bool {
	return m == ModeCategory || m == ModeFlat
}

// MediaTypeName returns a short label used in logs and metrics.
func MediaTypeName(mt int16) string {
	switch mt {
	case MediaTypeLivestream:
		return "live"
	case MediaTypeMovie:
		return "movie"
	case MediaTypeSeries:
		return "series"
	default:
		return "unknown"
	}
}
