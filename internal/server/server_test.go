package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hoppafit/website/internal/analytics"
	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/backend"
	"github.com/hoppafit/website/internal/blog"
	"github.com/hoppafit/website/internal/cachetag"
	"github.com/hoppafit/website/internal/forum"
	"github.com/hoppafit/website/internal/revalidate"
	"github.com/hoppafit/website/internal/sitemap"
)

type upstream struct {
	mu   sync.Mutex
	hits []string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits = append(u.hits, r.Method+" "+r.URL.RequestURI())
	u.mu.Unlock()

	switch r.URL.Path {
	case "/blog/articles":
		_, _ = io.WriteString(w, `{"items":[{"slug":"leg-day","updatedAt":"2024-02-02T00:00:00.000Z"}],"pagination":{"page":1,"totalPages":1}}`)
	default:
		_, _ = io.WriteString(w, `{"ok":true}`)
	}
}

func (u *upstream) calls() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]string(nil), u.hits...)
}

func newRouter(t *testing.T, up *upstream) http.Handler {
	t.Helper()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	be := backend.New(srv.URL, time.Second, nil)
	pages := cachetag.New(cachetag.WithTTL(time.Minute))
	d := analytics.NewDispatcher(analytics.Options{Enabled: true})
	t.Cleanup(d.Close)

	return New(Deps{
		Guard:      auth.NewGuard(nil),
		Forum:      forum.New(be),
		Blog:       blog.New(be, pages),
		Analytics:  analytics.NewAPI(d, "hoppa_analytics_consent", false),
		Revalidate: revalidate.New("s3cret", revalidate.LocalPurger{Pages: pages}),
		Sitemap:    sitemap.New(be, "https://hoppa.fit"),
	})
}

func send(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, rd))

	return w
}

func TestRoutes(t *testing.T) {
	up := &upstream{}
	h := newRouter(t, up)

	tests := []struct {
		method, target string
		code           int
		body           string
	}{
		{http.MethodGet, "/ping", http.StatusOK, "pong"},
		{http.MethodGet, "/api/forum/topics?sort=hot", http.StatusOK, `{"ok":true}`},
		{http.MethodPost, "/api/forum/topics", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{http.MethodGet, "/api/nothing", http.StatusNotFound, `{"error":"Resource not found."}`},
		{http.MethodPut, "/api/revalidate", http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`},
		{http.MethodGet, "/api/analytics/consent", http.StatusOK, `{"consent":"unknown","initialized":false}`},
	}
	for _, tt := range tests {
		w := send(h, tt.method, tt.target, "")
		if w.Code != tt.code {
			t.Errorf("%s %s: code = %d, want %d", tt.method, tt.target, w.Code, tt.code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != tt.body {
			t.Errorf("%s %s: body = %s, want %s", tt.method, tt.target, got, tt.body)
		}
	}

	if diff := cmp.Diff([]string{"GET /forum/topics?sort=hot"}, up.calls()); diff != "" {
		t.Fatalf("backend calls (-want +got):\n%s", diff)
	}
}

func TestRevalidatePurgesBlogCache(t *testing.T) {
	up := &upstream{}
	h := newRouter(t, up)

	for i := 0; i < 2; i++ {
		if w := send(h, http.MethodGet, "/api/blog/articles/slug/leg-day", ""); w.Code != http.StatusOK {
			t.Fatalf("article: code = %d", w.Code)
		}
	}
	if n := len(up.calls()); n != 1 {
		t.Fatalf("cached article hit backend %d times", n)
	}

	w := send(h, http.MethodPost, "/api/revalidate", `{"paths":["/blog/leg-day"],"secret":"s3cret"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Purged cache for 1 path(s)") {
		t.Fatalf("revalidate: %d %s", w.Code, w.Body.String())
	}

	_ = send(h, http.MethodGet, "/api/blog/articles/slug/leg-day", "")
	if n := len(up.calls()); n != 2 {
		t.Fatalf("purged article not refetched: %v", up.calls())
	}
}

func TestSitemaps(t *testing.T) {
	up := &upstream{}
	h := newRouter(t, up)

	w := send(h, http.MethodGet, "/server-sitemap.xml", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<loc>https://hoppa.fit/blog/leg-day</loc>") {
		t.Fatalf("server sitemap: %d %s", w.Code, w.Body.String())
	}

	w = send(h, http.MethodGet, "/sitemap.xml", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<loc>https://hoppa.fit/forum</loc>") {
		t.Fatalf("sitemap: %d %s", w.Code, w.Body.String())
	}
}
