package forum

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/backend"
)

type call struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]interface{}
}

type upstream struct {
	mu     sync.Mutex
	calls  []call
	status int
	reply  string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &c.Body)
	}
	u.mu.Lock()
	u.calls = append(u.calls, c)
	u.mu.Unlock()

	status := u.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, u.reply)
}

func setup(t *testing.T, up *upstream) http.Handler {
	t.Helper()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	return New(backend.New(srv.URL, time.Second, nil)).Routes(auth.NewGuard(nil))
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

func TestVoteSendsSinglePatch(t *testing.T) {
	up := &upstream{reply: `{"votes":4}`}
	h := setup(t, up)

	w := do(h, http.MethodPatch, "/topics/t1", "tok", `{"userId":"u1","value":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body %s", w.Code, w.Body.String())
	}
	if strings.TrimSpace(w.Body.String()) != `{"votes":4}` {
		t.Fatalf("body = %s", w.Body.String())
	}

	want := []call{{
		Method: http.MethodPatch,
		Path:   "/topics/vote",
		Auth:   "Bearer tok",
		Body:   map[string]interface{}{"userId": "u1", "topicId": "t1", "value": float64(1)},
	}}
	if diff := cmp.Diff(want, up.calls); diff != "" {
		t.Fatalf("upstream calls (-want +got):\n%s", diff)
	}
}

func TestVoteRoute(t *testing.T) {
	up := &upstream{reply: `{}`}
	h := setup(t, up)

	w := do(h, http.MethodPatch, "/topics/t9/vote", "tok", `{"userId":"u1","value":-1}`)
	if w.Code != http.StatusOK || len(up.calls) != 1 {
		t.Fatalf("code=%d calls=%d", w.Code, len(up.calls))
	}
	if up.calls[0].Body["value"] != float64(-1) || up.calls[0].Body["topicId"] != "t9" {
		t.Fatalf("body = %v", up.calls[0].Body)
	}
}

func TestInvalidVote(t *testing.T) {
	up := &upstream{}
	h := setup(t, up)

	for _, body := range []string{`{"userId":"u1","value":2}`, `{"userId":"u1","value":0}`} {
		w := do(h, http.MethodPatch, "/topics/t1", "tok", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: code = %d", body, w.Code)
		}
	}
	if w := do(h, http.MethodPatch, "/topics/t1/vote", "tok", `{"userId":"u1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing value: code = %d", w.Code)
	}
	if len(up.calls) != 0 {
		t.Fatalf("invalid votes reached upstream: %v", up.calls)
	}
}

func TestWritesRequireToken(t *testing.T) {
	up := &upstream{}
	h := setup(t, up)

	tests := []struct{ method, target, body string }{
		{http.MethodPost, "/topics", `{"userId":"u","title":"a","content":"b"}`},
		{http.MethodPatch, "/topics/t1", `{"userId":"u","value":1}`},
		{http.MethodDelete, "/topics/t1", `{"userId":"u"}`},
		{http.MethodPost, "/comments", `{"userId":"u","topicId":"t1","content":"hi"}`},
		{http.MethodPatch, "/comments/c1", `{"userId":"u","content":"hi"}`},
		{http.MethodDelete, "/comments/c1", ""},
	}
	for _, tt := range tests {
		w := do(h, tt.method, tt.target, "", tt.body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: code = %d", tt.method, tt.target, w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Unauthorized"}` {
			t.Errorf("%s %s: body = %s", tt.method, tt.target, got)
		}
	}
	if len(up.calls) != 0 {
		t.Fatalf("unauthenticated writes reached upstream: %v", up.calls)
	}
}

func TestCreateTopic(t *testing.T) {
	up := &upstream{reply: `{"id":"t2"}`}
	h := setup(t, up)

	w := do(h, http.MethodPost, "/topics", "tok", `{"userId":"u1","title":"Leg day","content":"tips?"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("code = %d", w.Code)
	}
	if up.calls[0].Path != "/topics" || up.calls[0].Body["title"] != "Leg day" {
		t.Fatalf("call = %+v", up.calls[0])
	}

	if w := do(h, http.MethodPost, "/topics", "tok", `{"userId":"u1","title":" ","content":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank title: code = %d", w.Code)
	}
}

func TestUpdateAndDeleteTopic(t *testing.T) {
	up := &upstream{reply: `{"ok":true}`}
	h := setup(t, up)

	do(h, http.MethodPatch, "/topics/t1", "tok", `{"userId":"u1","title":"new"}`)
	do(h, http.MethodDelete, "/topics/t1", "tok", `{"userId":"u1"}`)

	want := []call{
		{Method: http.MethodPatch, Path: "/topics/update", Auth: "Bearer tok",
			Body: map[string]interface{}{"topicId": "t1", "userId": "u1", "title": "new"}},
		{Method: http.MethodDelete, Path: "/topics", Auth: "Bearer tok",
			Body: map[string]interface{}{"topicId": "t1", "userId": "u1"}},
	}
	if diff := cmp.Diff(want, up.calls); diff != "" {
		t.Fatalf("upstream calls (-want +got):\n%s", diff)
	}
}

func TestListAndDetail(t *testing.T) {
	up := &upstream{reply: `[]`}
	h := setup(t, up)

	do(h, http.MethodGet, "/topics?sort=hot&limit=5", "", "")
	do(h, http.MethodGet, "/topics/t1", "tok", "")
	do(h, http.MethodGet, "/comments?topicId=t1", "", "")

	want := []call{
		{Method: http.MethodGet, Path: "/forum/topics", Query: "limit=5&sort=hot"},
		{Method: http.MethodGet, Path: "/topics/topicDetails", Query: "topicId=t1", Auth: "Bearer tok"},
		{Method: http.MethodGet, Path: "/forum/topics/t1/comments"},
	}
	if diff := cmp.Diff(want, up.calls); diff != "" {
		t.Fatalf("upstream calls (-want +got):\n%s", diff)
	}
}

func TestListCommentsRequiresTopic(t *testing.T) {
	up := &upstream{}
	h := setup(t, up)

	if w := do(h, http.MethodGet, "/comments", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", w.Code)
	}
	if len(up.calls) != 0 {
		t.Fatal("upstream called without topicId")
	}
}

func TestComments(t *testing.T) {
	up := &upstream{reply: `{"id":"c1"}`}
	h := setup(t, up)

	if w := do(h, http.MethodPost, "/comments", "tok", `{"userId":"u1","topicId":"t1","content":"   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty comment: code = %d", w.Code)
	}
	if len(up.calls) != 0 {
		t.Fatal("empty comment reached upstream")
	}

	if w := do(h, http.MethodPost, "/comments", "tok", `{"userId":"u1","topicId":"t1","content":"nice"}`); w.Code != http.StatusCreated {
		t.Fatalf("create: code = %d", w.Code)
	}
	do(h, http.MethodPatch, "/comments/c1", "tok", `{"userId":"u1","content":"edited"}`)
	do(h, http.MethodDelete, "/comments/c1", "tok", "")

	got := up.calls[1:]
	want := []call{
		{Method: http.MethodPatch, Path: "/comments/update", Auth: "Bearer tok",
			Body: map[string]interface{}{"commentId": "c1", "userId": "u1", "content": "edited"}},
		{Method: http.MethodDelete, Path: "/comments", Auth: "Bearer tok",
			Body: map[string]interface{}{"commentId": "c1", "userId": ""}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("upstream calls (-want +got):\n%s", diff)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := setup(t, &upstream{})

	for _, tt := range []struct{ method, target string }{
		{http.MethodPut, "/topics"},
		{http.MethodPut, "/topics/t1"},
		{http.MethodGet, "/comments/c1"},
	} {
		w := do(h, tt.method, tt.target, "tok", "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: code = %d", tt.method, tt.target, w.Code)
			continue
		}
		if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Method not allowed"}` {
			t.Errorf("%s %s: body = %s", tt.method, tt.target, got)
		}
	}
}

func TestUpstreamErrorPassthrough(t *testing.T) {
	up := &upstream{status: http.StatusNotFound, reply: `{"message":"Topic not found"}`}
	h := setup(t, up)

	w := do(h, http.MethodGet, "/topics/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":{"message":"Topic not found"}}` {
		t.Fatalf("body = %s", got)
	}
}

func TestUpstreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	h := New(backend.New(srv.URL, time.Second, nil)).Routes(auth.NewGuard(nil))

	w := do(h, http.MethodGet, "/topics", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":{"message":"Internal server error"}}` {
		t.Fatalf("body = %s", got)
	}
}
