package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/stalker2m3u/internal/metrics"
	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/portal"
	"github.com/voyagen/stalker2m3u/internal/store"
)

func TestConvertSingleChannel(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.channels = []map[string]any{{"id": "1", "name": "News", "cmd": "ffmpeg http://x/1"}}

	conv, err := NewConverter(Options{}).Convert(context.Background(), Request{
		PortalURL:  srv.URL + "/c",
		MACAddress: "00:1a:79:12:34:56",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, conv.ChannelCount)
	assert.Equal(t, 1, conv.TotalCount)
	assert.Equal(t, "00:1A:79:12:34:56", conv.MACAddress)
	assert.NotEmpty(t, conv.SessionID)
	assert.Contains(t, conv.Playlist, "#EXTINF:-1 tvg-id=\"1\" group-title=\"Live TV\",News\nhttp://x/1\n")
	assert.True(t, strings.HasPrefix(conv.Playlist, "#EXTM3U\n"))
}

func TestConvertValidation(t *testing.T) {
	c := NewConverter(Options{})
	_, err := c.Convert(context.Background(), Request{MACAddress: "00:1a:79:12:34:56"})
	assert.ErrorIs(t, err, ErrMissingPortalURL)
	assert.True(t, IsValidation(err))

	_, err = c.Convert(context.Background(), Request{PortalURL: "http://example.com/c", MACAddress: "  "})
	assert.ErrorIs(t, err, ErrMissingMACAddress)

	_, err = c.Convert(context.Background(), Request{PortalURL: "http://example.com/c", MACAddress: "x", Mode: "weird"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestConvertValidationMakesNoPortalCalls(t *testing.T) {
	sp, srv := newStubPortal(t)
	_, err := NewConverter(Options{}).Convert(context.Background(), Request{PortalURL: srv.URL})
	require.Error(t, err)
	assert.Zero(t, sp.actions("handshake"))
}

func TestConvertChannelFailureIsAtomic(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.failChannels = true
	mem := store.NewMemory()

	conv, err := NewConverter(Options{}, WithStore(mem)).Convert(context.Background(), Request{
		PortalURL:  srv.URL,
		MACAddress: "00:1a:79:12:34:56",
		SessionID:  "s1",
	})
	require.Error(t, err)
	assert.Nil(t, conv)
	assert.Contains(t, err.Error(), "list channels")
	assert.ErrorIs(t, err, portal.ErrHTTPStatus)

	_, err = mem.GetConversion(context.Background(), "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, sp.actions("get_categories"))
}

func TestConvertDropsUnresolvedItem(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.categories["vod"] = []map[string]any{{"id": "10", "title": "Action"}}
	sp.pages["vod"]["10"] = [][]map[string]any{{vod("a", "A"), vod("b", "B"), vod("c", "C")}}
	sp.link = func(cmd string) string {
		if cmd == "/media/b.mpg" {
			return ""
		}
		return "http://cdn" + cmd
	}
	misses := testutil.ToFloat64(metrics.ResolutionMissesTotal.WithLabelValues("movie"))

	conv, err := NewConverter(Options{}).Convert(context.Background(), Request{PortalURL: srv.URL, MACAddress: "001a79123456"})
	require.NoError(t, err)

	assert.Equal(t, 2, conv.MovieCount)
	assert.Equal(t, 2, conv.TotalCount)
	assert.NotContains(t, conv.Playlist, ",B\n")
	assert.Contains(t, conv.Playlist, `group-title="Movies – Action",A`)
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.ResolutionMissesTotal.WithLabelValues("movie")))
}

func TestConvertCategoryModeSkipsCatchAll(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.categories["series"] = []map[string]any{{"id": "*", "title": "All"}, {"id": "7", "name": "Drama"}}
	sp.pages["series"]["*"] = [][]map[string]any{{vod("x", "Dup")}}
	sp.pages["series"]["7"] = [][]map[string]any{{vod("e1", "Ep 1")}, {vod("e2", "Ep 2")}}

	conv, err := NewConverter(Options{}).Convert(context.Background(), Request{PortalURL: srv.URL, MACAddress: "001a79123456"})
	require.NoError(t, err)

	assert.Equal(t, 2, conv.SeriesCount)
	assert.NotContains(t, conv.Playlist, "Dup")
	require.Len(t, conv.Entries, 2)
	assert.Equal(t, "Series – Drama", conv.Entries[0].Group)
	assert.Equal(t, "http://cdn/media/e2.mpg", conv.Entries[1].URL)
	// two pages with data plus the empty third
	assert.Equal(t, 3, sp.actions("get_ordered_list"))
}

func TestConvertCategoryModeSkipsCategoriesWithoutID(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.categories["vod"] = []map[string]any{{"title": "NoID"}, {"id": " ", "title": "Blank"}, {"id": "10", "title": "Action"}}
	// a portal answers a blank category like the catch-all
	sp.pages["vod"][""] = [][]map[string]any{{vod("m1", "Film")}}
	sp.pages["vod"]["*"] = [][]map[string]any{{vod("m1", "Film")}}
	sp.pages["vod"]["10"] = [][]map[string]any{{vod("m1", "Film")}}

	conv, err := NewConverter(Options{}).Convert(context.Background(), Request{PortalURL: srv.URL, MACAddress: "001a79123456"})
	require.NoError(t, err)

	assert.Equal(t, 1, conv.MovieCount)
	require.Len(t, conv.Entries, 1)
	assert.Equal(t, "Movies – Action", conv.Entries[0].Group)
	assert.NotContains(t, conv.Playlist, "NoID")
	// one page with data plus the empty second, for "10" only
	assert.Equal(t, 2, sp.actions("get_ordered_list"))
}

func TestConvertFlatMode(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.pages["vod"]["*"] = [][]map[string]any{{vod("m1", "Film")}}

	conv, err := NewConverter(Options{Mode: models.ModeFlat}).Convert(context.Background(), Request{PortalURL: srv.URL, MACAddress: "001a79123456"})
	require.NoError(t, err)

	assert.Zero(t, sp.actions("get_categories"))
	require.Len(t, conv.Entries, 1)
	assert.Equal(t, models.GroupMovies, conv.Entries[0].Group)
	assert.Equal(t, models.ModeFlat, conv.Mode)
}

func TestConvertKeepsOrderWithConcurrency(t *testing.T) {
	sp, srv := newStubPortal(t)
	var page []map[string]any
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		page = append(page, vod(id, "Film "+id))
	}
	sp.pages["vod"]["*"] = [][]map[string]any{page}

	conv, err := NewConverter(Options{Mode: models.ModeFlat, Concurrency: 4}).Convert(context.Background(), Request{PortalURL: srv.URL, MACAddress: "001a79123456"})
	require.NoError(t, err)

	require.Len(t, conv.Entries, 8)
	for i, e := range conv.Entries {
		assert.Equal(t, i, e.Position)
		assert.Equal(t, page[i]["id"], e.ID)
	}
}

func TestConvertPersistsSummaryOnly(t *testing.T) {
	sp, srv := newStubPortal(t)
	sp.channels = []map[string]any{{"id": "1", "name": "News", "cmd": "http://x/1"}}
	mem := store.NewMemory()
	ctx := context.Background()

	_, err := NewConverter(Options{}, WithStore(mem)).Convert(ctx, Request{PortalURL: srv.URL, MACAddress: "001a79123456", SessionID: "s1"})
	require.NoError(t, err)
	entries, err := mem.ListEntries(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = NewConverter(Options{PersistItems: true}, WithStore(mem)).Convert(ctx, Request{PortalURL: srv.URL, MACAddress: "001a79123456", SessionID: "s2"})
	require.NoError(t, err)
	entries, err = mem.ListEntries(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	got, err := mem.GetConversion(ctx, "s2")
	require.NoError(t, err)
	assert.Contains(t, got.Playlist, ",News\nhttp://x/1\n")
}
