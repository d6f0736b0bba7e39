package portal

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/stalker2m3u/internal/models"
)

func TestResolveStreamLink(t *testing.T) {
	fp, srv := newFakePortal(t)
	fp.handle("create_link", func(w http.ResponseWriter, r *http.Request) {
		writeJS(w, map[string]string{"cmd": "ffmpeg http://cdn/" + r.URL.Query().Get("cmd")})
	})
	c := NewClient(srv.URL, "00:1a:79:12:34:56")

	got := c.ResolveStreamLink(context.Background(), "/media/1.mpg", models.MediaTypeMovie)
	assert.Equal(t, "ffmpeg http://cdn//media/1.mpg", got)

	got = c.ResolveStreamLink(context.Background(), "/media/2.mpg", models.MediaTypeSeries)
	assert.Equal(t, "ffmpeg http://cdn//media/2.mpg", got)

	calls := fp.callsFor("create_link")
	require.Len(t, calls, 2)
	assert.Equal(t, "type=vod&action=create_link&cmd=%2Fmedia%2F1.mpg&JsHttpRequest=1-xml", calls[0].URL.RawQuery)
	assert.Equal(t, "type=vod&action=create_link&cmd=%2Fmedia%2F2.mpg&series=1&JsHttpRequest=1-xml", calls[1].URL.RawQuery)
}

func TestResolveStreamLinkFailuresYieldEmpty(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("nope"))
		},
		"missing cmd": func(w http.ResponseWriter, _ *http.Request) {
			writeJS(w, map[string]string{"id": "1"})
		},
		"wrong shape": func(w http.ResponseWriter, _ *http.Request) {
			writeJS(w, []string{"x"})
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			fp, srv := newFakePortal(t)
			fp.handle("create_link", h)
			c := NewClient(srv.URL, "00:1a:79:12:34:56")
			assert.Empty(t, c.ResolveStreamLink(context.Background(), "/media/1.mpg", models.MediaTypeMovie))
		})
	}
}
