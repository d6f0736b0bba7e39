package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/stalker2m3u/internal/models"
)

func TestListChannels(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_all_channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "type=itv&action=get_all_channels&JsHttpRequest=1-xml", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"js":{"data":[{"id":1,"name":"News","cmd":"ffmpeg http://x/1","number":"7"},{"id":"2","title":"Alt"}]}}`))
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	chans, err := c.ListChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, chans, 2)
	assert.Equal(t, "1", chans[0].ID.String())
	assert.Equal(t, "ffmpeg http://x/1", chans[0].Cmd.String())
	assert.Equal(t, "7", chans[0].Number.String())
	assert.Equal(t, "Alt", chans[1].Title.String())
}

func TestListVodCategories(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("type") {
		case "vod":
			_, _ = w.Write([]byte(`{"js":{"data":[{"id":"*","title":"All"},{"id":10,"name":"Action"},{"id":"11","title":""}]}}`))
		case "series":
			_, _ = w.Write([]byte(`{"js":{"data":[{"id":"20","title":"Drama"}]}}`))
		default:
			t.Errorf("unexpected type %q", r.URL.Query().Get("type"))
		}
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	movies, err := c.ListVodCategories(context.Background(), models.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{
		{ID: "*", Name: "All"},
		{ID: "10", Name: "Action"},
		{ID: "11", Name: "Unknown"},
	}, movies)

	series, err := c.ListVodCategories(context.Background(), models.MediaTypeSeries)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{ID: "20", Name: "Drama"}}, series)
}

func TestListRequiresDataKey(t *testing.T) {
	fp, srv := newFakePortal(t)
	for _, action := range []string{"get_all_channels", "get_categories", "get_ordered_list"} {
		fp.handle(action, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"js":{}}`))
		})
	}
	c := NewClient(srv.URL, "00:1a:79:12:34:56")
	ctx := context.Background()

	_, err := c.ListChannels(ctx)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "get_all_channels", pe.Action)

	_, err = c.ListVodCategories(ctx, models.MediaTypeMovie)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = c.ListVodOrderedList(ctx, models.MediaTypeMovie, AllCategories, 1)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestListAcceptsNullData(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_all_channels", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"js":{"data":null}}`))
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	chans, err := c.ListChannels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chans)
}

func TestListVodOrderedListSendsCategoryAsGiven(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_ordered_list", func(w http.ResponseWriter, _ *http.Request) {
		writeJS(w, map[string]any{"data": []any{}})
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	_, err := c.ListVodOrderedList(context.Background(), models.MediaTypeMovie, "", 1)
	require.NoError(t, err)
	calls := fp.callsFor("get_ordered_list")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].URL.RawQuery, "&category=&")
}

func TestListVodOrderedListQuery(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_ordered_list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"type=series&action=get_ordered_list&movie_id=0&season_id=0&episode_id=0&category=42&fav=0&sortby=added&hd=0&not_ended=0&p=3&JsHttpRequest=1-xml",
			r.URL.RawQuery)
		writeJS(w, map[string]any{"data": []any{}})
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")
	_, err := c.ListVodOrderedList(context.Background(), models.MediaTypeSeries, "42", 3)
	require.NoError(t, err)
}

// pagedHandler serves pages 1..len(pages); page numbers past the end get the
// last element again so tests can prove later pages are never requested.
func pagedHandler(pages [][]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := strconv.Atoi(r.URL.Query().Get("p"))
		if p < 1 {
			p = 1
		}
		if p > len(pages) {
			p = len(pages)
		}
		writeJS(w, map[string]any{"data": pages[p-1]})
	}
}

func item(id string) map[string]any {
	return map[string]any{"id": id, "name": "Item " + id, "cmd": "/media/" + id + ".mpg"}
}

func TestPaginateStopsAtFirstEmptyPage(t *testing.T) {
	fp, srv := newFakePortal(t)
	// page 3 is empty; page 4 would have data but must never be fetched
	fp.handle("get_ordered_list", pagedHandler([][]map[string]any{
		{item("1"), item("2")},
		{item("3")},
		{},
		{item("99")},
	}))
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	var ids []string
	for it, err := range c.PaginateVodItems(context.Background(), models.MediaTypeMovie, "*", 0) {
		require.NoError(t, err)
		ids = append(ids, it.ID.String())
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Len(t, fp.callsFor("get_ordered_list"), 3)
}

func TestPaginateEndsOnHTTPError(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_ordered_list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJS(w, map[string]any{"data": []any{item("1")}})
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	var n int
	for _, err := range c.PaginateVodItems(context.Background(), models.MediaTypeMovie, "5", 0) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestPaginateYieldsMalformedPage(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_ordered_list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"js":{"data":"nope"}}`))
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	var gotErr error
	for _, err := range c.PaginateVodItems(context.Background(), models.MediaTypeMovie, "5", 0) {
		gotErr = err
	}
	require.Error(t, gotErr)
	assert.True(t, errors.Is(gotErr, ErrMalformedResponse))
	assert.Contains(t, gotErr.Error(), "page 1")
}

func TestPaginateMaxPages(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("get_ordered_list", func(w http.ResponseWriter, r *http.Request) {
		writeJS(w, map[string]any{"data": []any{item(r.URL.Query().Get("p"))}})
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	var ids []string
	for it, err := range c.PaginateVodItems(context.Background(), models.MediaTypeMovie, "*", 4) {
		require.NoError(t, err)
		ids = append(ids, it.ID.String())
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
}

func TestPaginateFetchesExactlyKMinusOnePages(t *testing.T) {
	for k := 1; k <= 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			fp, srv := newFakePortal(t)
			pages := make([][]map[string]any, 0, k+1)
			for p := 1; p < k; p++ {
				pages = append(pages, []map[string]any{item(strconv.Itoa(p))})
			}
			pages = append(pages, []map[string]any{}, []map[string]any{item("late")})
			fp.handle("get_ordered_list", pagedHandler(pages))
			c := NewClient(srv.URL, "00:1a:79:12:34:56")

			var n int
			for _, err := range c.PaginateVodItems(context.Background(), models.MediaTypeMovie, "*", 0) {
				require.NoError(t, err)
				n++
			}
			assert.Equal(t, k-1, n)
			assert.Len(t, fp.callsFor("get_ordered_list"), k)
		})
	}
}
