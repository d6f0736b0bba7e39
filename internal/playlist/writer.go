// Package playlist renders and reads extended M3U playlists.
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/voyagen/stalker2m3u/internal/models"
)

const header = "#EXTM3U"

// Legacy engine prefixes portals put in front of stream URLs.
var enginePrefixes = []string{"ffmpeg ", "ffrt2k ", "ffrt "}

// CleanStreamURL strips a leading engine token ("ffmpeg ", "ffrt ",
// "ffrt2k ") from u unless u already starts with http.
func CleanStreamURL(u string) string {
	if strings.HasPrefix(u, "http") {
		return u
	}
	for _, p := range enginePrefixes {
		if strings.HasPrefix(u, p) {
			return strings.TrimPrefix(u, p)
		}
	}
	return u
}

var (
	lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
	attrUnsafe = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", `"`, "'")
)

// oneLine keeps s on a single playlist line.
func oneLine(s string) string { return lineBreaks.Replace(s) }

// attrValue makes s safe inside a quoted EXTINF attribute.
func attrValue(s string) string { return attrUnsafe.Replace(s) }

// Writer streams entries as extended M3U.
type Writer struct {
	w             *bufio.Writer
	headerWritten bool
}

// NewWriter creates a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes #EXTM3U once.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := w.w.WriteString(header + "\n"); err != nil {
		return fmt.Errorf("writing M3U header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteEntry writes the #EXTINF line and the URL line for e. Attribute order
// is tvg-id, tvg-logo, group-title; players match on it. Line breaks in any
// field become spaces and double quotes in attributes become single quotes.
// e.URL is written as given; Entries has already cleaned it.
func (w *Writer) WriteEntry(e models.Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("#EXTINF:-1")
	if e.ID != "" {
		fmt.Fprintf(&b, ` tvg-id="%s"`, attrValue(e.ID))
	}
	if e.Logo != "" {
		fmt.Fprintf(&b, ` tvg-logo="%s"`, attrValue(e.Logo))
	}
	if e.Group != "" {
		fmt.Fprintf(&b, ` group-title="%s"`, attrValue(e.Group))
	}
	b.WriteByte(',')
	b.WriteString(oneLine(e.Name))
	b.WriteByte('\n')
	b.WriteString(oneLine(e.URL))
	b.WriteByte('\n')
	if _, err := w.w.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing entry %q: %w", e.Name, err)
	}
	return nil
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Write renders a complete playlist of entries to w.
func Write(w io.Writer, entries []models.Entry) error {
	pw := NewWriter(w)
	for _, e := range entries {
		if err := pw.WriteEntry(e); err != nil {
			return err
		}
	}
	return pw.Flush()
}

// Entries flattens a result in playlist order (channels, movies, series)
// with stream URLs already cleaned.
func Entries(channels []models.Channel, movies, series []models.VodItem) []models.Entry {
	out := make([]models.Entry, 0, len(channels)+len(movies)+len(series))
	for _, ch := range channels {
		out = append(out, models.Entry{
			Position:  len(out),
			MediaType: models.MediaTypeLivestream,
			ID:        ch.ID,
			Name:      ch.Name,
			URL:       CleanStreamURL(ch.Cmd),
			Logo:      ch.Logo,
			Group:     ch.Group,
		})
	}
	for _, items := range [][]models.VodItem{movies, series} {
		for _, it := range items {
			out = append(out, models.Entry{
				Position:  len(out),
				MediaType: it.MediaType,
				ID:        it.ID,
				Name:      it.Name,
				URL:       CleanStreamURL(it.Cmd),
				Logo:      it.Poster,
				Group:     it.Group,
			})
		}
	}
	return out
}

// Serialize renders channels, then movies, then series as playlist text.
func Serialize(channels []models.Channel, movies, series []models.VodItem) string {
	var sb strings.Builder
	// strings.Builder never fails to write.
	_ = Write(&sb, Entries(channels, movies, series))
	return sb.String()
}
