package models

import "time"

// Result is everything a single conversion collected.
type Result struct {
	Channels []Channel
	Movies   []VodItem
	Series   []VodItem
}

// Counts holds the per-kind totals reported to callers.
type Counts struct {
	ChannelCount int `json:"channelCount"`
	MovieCount   int `json:"movieCount"`
	SeriesCount  int `json:"seriesCount"`
	TotalCount   int `json:"totalCount"`
}

// Counts returns the totals for r.
func (r *Result) Counts() Counts {
	c := Counts{
		ChannelCount: len(r.Channels),
		MovieCount:   len(r.Movies),
		SeriesCount:  len(r.Series),
	}
	c.TotalCount = c.ChannelCount + c.MovieCount + c.SeriesCount
	return c
}

// Entry is one flattened playlist line pair.
type Entry struct {
	Position  int    `json:"position"`
	MediaType int16  `json:"media_type"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Logo      string `json:"logo,omitempty"`
	Group     string `json:"group,omitempty"`
}

// Conversion is the stored outcome of one portal conversion.
type Conversion struct {
	SessionID  string          `json:"sessionId"`
	PortalURL  string          `json:"portalUrl"`
	MACAddress string          `json:"macAddress"`
	Mode       EnumerationMode `json:"mode"`
	CreatedAt  time.Time       `json:"createdAt"`

	Counts

	Playlist string `json:"playlist,omitempty"`
	// Entries is only populated when items are persisted or explicitly loaded.
	Entries []Entry `json:"entries,omitempty"`
}
