package playlist

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/voyagen/stalker2m3u/internal/models"
)

var (
	reTvgID   = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup   = regexp.MustCompile(`group-title="([^"]*)"`)
)

// ErrNoHeader is returned by Parse when the input does not start with #EXTM3U.
var ErrNoHeader = errors.New("missing #EXTM3U header")

// Parse reads an extended M3U playlist back into entries. An #EXTINF line
// without a following URL is skipped. The media type is derived from the
// group title written by this package.
func Parse(r io.Reader) ([]models.Entry, error) {
	scanner := bufio.NewScanner(r)
	// Some EXTINF lines carry very long logo URLs.
	const maxSize = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxSize)

	var (
		entries    []models.Entry
		extinfLine string
		sawHeader  bool
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		upper := strings.ToUpper(line)
		switch {
		case line == "":
		case !sawHeader:
			if !strings.HasPrefix(upper, header) {
				return nil, ErrNoHeader
			}
			sawHeader = true
		case strings.HasPrefix(upper, "#EXTINF"):
			extinfLine = line
		case strings.HasPrefix(line, "#"):
		default:
			if extinfLine == "" {
				continue
			}
			group := matchFirst(reGroup, extinfLine)
			entries = append(entries, models.Entry{
				Position:  len(entries),
				MediaType: mediaTypeFromGroup(group),
				ID:        matchFirst(reTvgID, extinfLine),
				Name:      displayName(extinfLine),
				URL:       line,
				Logo:      matchFirst(reTvgLogo, extinfLine),
				Group:     group,
			})
			extinfLine = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, ErrNoHeader
	}
	return entries, nil
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// displayName returns the text after the first comma outside quotes.
func displayName(extinf string) string {
	inQuotes := false
	for i, r := range extinf {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				return strings.TrimSpace(extinf[i+1:])
			}
		}
	}
	return ""
}

func mediaTypeFromGroup(group string) int16 {
	switch {
	case strings.HasPrefix(group, models.GroupMovies):
		return models.MediaTypeMovie
	case strings.HasPrefix(group, models.GroupSeries):
		return models.MediaTypeSeries
	default:
		return models.MediaTypeLivestream
	}
}
