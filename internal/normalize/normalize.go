// Package normalize maps raw portal records onto the playlist model. Mapping
// and filtering happen together: a record that cannot be played is dropped.
package normalize

import (
	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/portal"
)

const (
	unknownChannel = "Unknown Channel"
	unknownItem    = "Unknown"
	groupSeparator = " – "
)

// Channel maps a live channel. ok is false when the channel has no cmd.
func Channel(raw portal.RawChannel) (ch models.Channel, ok bool) {
	cmd := raw.Cmd.String()
	if cmd == "" {
		return models.Channel{}, false
	}
	return models.Channel{
		ID:     raw.ID.String(),
		Name:   firstNonEmpty(unknownChannel, raw.Name.String(), raw.Title.String()),
		Cmd:    cmd,
		Logo:   firstNonEmpty("", raw.Logo.String(), raw.LogoURL.String()),
		Number: raw.Number.String(),
		Group:  models.GroupLiveTV,
	}, true
}

// Channels maps and filters a channel listing, keeping portal order.
func Channels(raws []portal.RawChannel) []models.Channel {
	out := make([]models.Channel, 0, len(raws))
	for _, raw := range raws {
		if ch, ok := Channel(raw); ok {
			out = append(out, ch)
		}
	}
	return out
}

// HasCmd reports whether a VOD record is worth resolving at all.
func HasCmd(raw portal.RawVodItem) bool {
	return raw.Cmd.String() != ""
}

// VodItem maps a movie or episode whose cmd has been resolved to resolved.
// ok is false when resolution produced nothing.
func VodItem(raw portal.RawVodItem, resolved string, mediaType int16, group string) (item models.VodItem, ok bool) {
	if resolved == "" || !HasCmd(raw) {
		return models.VodItem{}, false
	}
	return models.VodItem{
		ID:        raw.ID.String(),
		Name:      firstNonEmpty(unknownItem, raw.Name.String(), raw.Title.String()),
		Cmd:       resolved,
		Poster:    firstNonEmpty("", raw.ScreenshotURI.String(), raw.Cover.String()),
		Group:     group,
		MediaType: mediaType,
	}, true
}

// GroupLabel returns "Movies"/"Series", qualified with the category name
// when one is given.
func GroupLabel(mediaType int16, categoryName string) string {
	base := models.GroupMovies
	if mediaType == models.MediaTypeSeries {
		base = models.GroupSeries
	}
	if categoryName == "" {
		return base
	}
	return base + groupSeparator + categoryName
}

func firstNonEmpty(fallback string, values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return fallback
}
