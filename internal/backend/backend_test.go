package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

type countingObserver struct {
	calls    int
	statuses []int
}

func (o *countingObserver) BackendRequest(_ context.Context, _ string, status int, _ time.Duration) {
	o.calls++
	o.statuses = append(o.statuses, status)
}

func TestDoSendsJSONAndToken(t *testing.T) {
	var gotAuth, gotType, gotBody, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	obs := &countingObserver{}
	c := New(srv.URL+"/", time.Second, obs)

	raw, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/topics",
		Query:  url.Values{"a": {"1"}},
		Body:   map[string]string{"title": "hi"},
		Token:  "tok",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if string(raw) != `{"ok":true}` {
		t.Errorf("body = %s", raw)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
	if gotBody != `{"title":"hi"}` {
		t.Errorf("sent body = %q", gotBody)
	}
	if gotQuery != "a=1" {
		t.Errorf("query = %q", gotQuery)
	}
	if obs.calls != 1 || obs.statuses[0] != http.StatusOK {
		t.Errorf("observer = %+v", obs)
	}
}

func TestDoStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"duplicate"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	_, err := c.Get(context.Background(), "/forum/topics", nil, "")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", se.StatusCode)
	}
	var body map[string]string
	if err := json.Unmarshal(se.Body, &body); err != nil || body["message"] != "duplicate" {
		t.Errorf("body = %s", se.Body)
	}
}

func TestDoEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	raw, err := New(srv.URL, time.Second, nil).Do(context.Background(), Request{Method: http.MethodDelete, Path: "/topics"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(raw) != "null" {
		t.Errorf("raw = %s", raw)
	}
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	obs := &countingObserver{}
	_, err := New(srv.URL, time.Second, obs).Get(context.Background(), "/x", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatal("transport failure must not be a StatusError")
	}
	if obs.calls != 1 || obs.statuses[0] != 0 {
		t.Errorf("observer = %+v", obs)
	}
}
