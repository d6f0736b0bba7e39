package portal

import (
	"context"
	"strings"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// ResolveStreamLink turns a catalog cmd into a playable URL via create_link.
// Movies and series both go through type=vod; series add series=1. Any
// failure yields "", which callers treat as "drop this item".
func (c *Client) ResolveStreamLink(ctx context.Context, cmd string, mediaType int16) string {
	q := NewQuery("vod", "create_link").Add("cmd", cmd)
	if mediaType == models.MediaTypeSeries {
		q = q.Add("series", "1")
	}
	env, err := c.RawGet(ctx, q)
	if err != nil {
		c.logger.Debug().Err(err).Str("cmd", cmd).Msg("create_link failed")
		return ""
	}
	var data createLinkData
	if err := env.Decode(&data); err != nil {
		c.logger.Debug().Err(err).Str("cmd", cmd).Msg("create_link response not understood")
		return ""
	}
	return strings.TrimSpace(data.Cmd)
}
