package portal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakePortal serves portal.php and dispatches on the action parameter.
type fakePortal struct {
	t       *testing.T
	mu      sync.Mutex
	calls   []*http.Request
	actions map[string]http.HandlerFunc
}

func newFakePortal(t *testing.T) (*fakePortal, *httptest.Server) {
	t.Helper()
	fp := &fakePortal{t: t, actions: map[string]http.HandlerFunc{}}
	fp.actions["handshake"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJS(w, map[string]string{"token": "abc"})
	}
	srv := httptest.NewServer(fp)
	t.Cleanup(srv.Close)
	return fp, srv
}

func (fp *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	fp.calls = append(fp.calls, r)
	h, ok := fp.actions[r.URL.Query().Get("action")]
	fp.mu.Unlock()
	if r.URL.Path != "/portal.php" {
		fp.t.Errorf("unexpected path: %s", r.URL.Path)
	}
	if !ok {
		http.Error(w, "no handler", http.StatusNotFound)
		return
	}
	h(w, r)
}

func (fp *fakePortal) handle(action string, h http.HandlerFunc) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.actions[action] = h
}

func (fp *fakePortal) callsFor(action string) []*http.Request {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	var out []*http.Request
	for _, r := range fp.calls {
		if r.URL.Query().Get("action") == action {
			out = append(out, r)
		}
	}
	return out
}

func writeJS(w http.ResponseWriter, js any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"js": js})
}
