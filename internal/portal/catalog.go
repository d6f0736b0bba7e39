package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// AllCategories is the category id that selects the whole catalog.
const AllCategories = "*"

// portalType maps a VOD media type to the portal's "type" parameter.
func portalType(mediaType int16) string {
	if mediaType == models.MediaTypeSeries {
		return "series"
	}
	return "vod"
}

// ListChannels returns every live channel. The portal does not paginate this
// call.
func (c *Client) ListChannels(ctx context.Context) ([]RawChannel, error) {
	env, err := c.RawGet(ctx, NewQuery("itv", "get_all_channels"))
	if err != nil {
		return nil, err
	}
	return decodeList[RawChannel](env, "get_all_channels")
}

// decodeList reads the "data" array of a list response. The key must be
// present; an explicit null counts as an empty list.
func decodeList[T any](env *Envelope, action string) ([]T, error) {
	var fields map[string]json.RawMessage
	if err := env.Decode(&fields); err != nil {
		return nil, &ProtocolError{Action: action, Kind: ErrMalformedResponse, Detail: err.Error()}
	}
	raw, ok := fields["data"]
	if !ok {
		return nil, &ProtocolError{Action: action, Kind: ErrMalformedResponse, Detail: "missing data"}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ProtocolError{Action: action, Kind: ErrMalformedResponse, Detail: err.Error()}
	}
	return items, nil
}

// ListVodCategories returns the categories for movies or series. Blank names
// become "Unknown".
func (c *Client) ListVodCategories(ctx context.Context, mediaType int16) ([]models.Category, error) {
	env, err := c.RawGet(ctx, NewQuery(portalType(mediaType), "get_categories"))
	if err != nil {
		return nil, err
	}
	raws, err := decodeList[RawCategory](env, "get_categories")
	if err != nil {
		return nil, err
	}
	cats := make([]models.Category, 0, len(raws))
	for _, rc := range raws {
		cats = append(cats, models.Category{
			ID:   rc.ID.String(),
			Name: CategoryName(rc.Title.String(), rc.Name.String()),
		})
	}
	return cats, nil
}

// CategoryName picks the display name of a category.
func CategoryName(title, name string) string {
	switch {
	case title != "":
		return title
	case name != "":
		return name
	default:
		return "Unknown"
	}
}

// ListVodOrderedList fetches one 1-indexed page of a category's items. Pass
// AllCategories for the whole catalog; categoryID is sent as given.
func (c *Client) ListVodOrderedList(ctx context.Context, mediaType int16, categoryID string, page int) ([]RawVodItem, error) {
	q := NewQuery(portalType(mediaType), "get_ordered_list").
		Add("movie_id", "0").
		Add("season_id", "0").
		Add("episode_id", "0").
		Add("category", categoryID).
		Add("fav", "0").
		Add("sortby", "added").
		Add("hd", "0").
		Add("not_ended", "0").
		Add("p", strconv.Itoa(page))
	env, err := c.RawGet(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeList[RawVodItem](env, "get_ordered_list")
}

// PaginateVodItems walks pages 1, 2, ... of a category until a page comes back
// empty or with a non-2xx status; both end the sequence without error. Other
// failures are yielded once and end the sequence. maxPages caps the walk
// (0 means no cap). Each call starts a fresh walk.
func (c *Client) PaginateVodItems(ctx context.Context, mediaType int16, categoryID string, maxPages int) iter.Seq2[RawVodItem, error] {
	return func(yield func(RawVodItem, error) bool) {
		for page := 1; maxPages <= 0 || page <= maxPages; page++ {
			items, err := c.ListVodOrderedList(ctx, mediaType, categoryID, page)
			if err != nil {
				if IsHTTPStatus(err) {
					c.logger.Debug().Err(err).Int("page", page).Str("category", categoryID).Msg("pagination ended on HTTP status")
					return
				}
				yield(RawVodItem{}, fmt.Errorf("page %d: %w", page, err))
				return
			}
			if len(items) == 0 {
				return
			}
			for _, it := range items {
				if !yield(it, nil) {
					return
				}
			}
		}
	}
}
