package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// stubPortal is a minimal portal.php that serves a fixed catalog.
type stubPortal struct {
	mu sync.Mutex

	channels []map[string]any
	// categories and pages are keyed by portal type ("vod" or "series").
	categories map[string][]map[string]any
	pages      map[string]map[string][][]map[string]any
	// link maps a cmd to a resolved URL; "" makes create_link fail.
	link func(cmd string) string

	failChannels bool
	requests     []string
}

func newStubPortal(t *testing.T) (*stubPortal, *httptest.Server) {
	t.Helper()
	sp := &stubPortal{
		categories: map[string][]map[string]any{},
		pages:      map[string]map[string][][]map[string]any{"vod": {}, "series": {}},
		link:       func(cmd string) string { return "http://cdn" + cmd },
	}
	srv := httptest.NewServer(sp)
	t.Cleanup(srv.Close)
	return sp, srv
}

func (sp *stubPortal) actions(action string) int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	n := 0
	for _, a := range sp.requests {
		if a == action {
			n++
		}
	}
	return n
}

func (sp *stubPortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action, typ := q.Get("action"), q.Get("type")
	sp.mu.Lock()
	sp.requests = append(sp.requests, action)
	sp.mu.Unlock()

	switch action {
	case "handshake":
		stubJS(w, map[string]string{"token": "abc"})
	case "get_all_channels":
		if sp.failChannels {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		stubJS(w, map[string]any{"data": sp.channels})
	case "get_categories":
		stubJS(w, map[string]any{"data": sp.categories[typ]})
	case "get_ordered_list":
		p, _ := strconv.Atoi(q.Get("p"))
		pages := sp.pages[typ][q.Get("category")]
		if p < 1 || p > len(pages) {
			stubJS(w, map[string]any{"data": []any{}})
			return
		}
		stubJS(w, map[string]any{"data": pages[p-1]})
	case "create_link":
		url := sp.link(q.Get("cmd"))
		if url == "" {
			http.Error(w, "no link", http.StatusNotFound)
			return
		}
		stubJS(w, map[string]string{"cmd": url})
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func stubJS(w http.ResponseWriter, js any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"js": js})
}

func vod(id, name string) map[string]any {
	return map[string]any{"id": id, "name": name, "cmd": "/media/" + id + ".mpg"}
}
