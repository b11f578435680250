package paginate

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: DefaultLimit}},
		{"page=3&limit=20", Params{Page: 3, Limit: 20}},
		{"page=0", Params{Page: 1, Limit: DefaultLimit}},
		{"page=-4&limit=0", Params{Page: 1, Limit: 1}},
		{"limit=1000", Params{Page: 1, Limit: MaxLimit}},
		{"page=abc&limit=x", Params{Page: 1, Limit: DefaultLimit}},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := FromQuery(q); got != tt.want {
			t.Errorf("FromQuery(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestApplyKeepsOtherParams(t *testing.T) {
	q := url.Values{"category": {"strength"}, "page": {"-1"}}
	out := Params{Page: 2, Limit: 12}.Apply(q)

	if out.Get("category") != "strength" || out.Get("page") != "2" || out.Get("limit") != "12" {
		t.Fatalf("Apply = %v", out)
	}
	if q.Get("page") != "-1" {
		t.Fatal("Apply must not modify its input")
	}
}

func TestMiddleware(t *testing.T) {
	var got Params
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?page=0&limit=5", nil))

	if got != (Params{Page: 1, Limit: 5}) {
		t.Fatalf("params = %+v", got)
	}
}

func TestPagerStaysInRange(t *testing.T) {
	p := NewPager()
	if p.Prev() {
		t.Fatal("Prev on page 1 must not move")
	}
	if p.Next() {
		t.Fatal("Next before the total is known must not move")
	}
	if p.Page() != 1 {
		t.Fatalf("page = %d", p.Page())
	}

	p.Update(3)
	for i := 0; i < 10; i++ {
		p.Next()
	}
	if p.Page() != 3 || p.HasNext() {
		t.Fatalf("page = %d, want 3 with no next", p.Page())
	}

	p.Go(-7)
	if p.Page() != 1 || p.HasPrev() {
		t.Fatalf("page = %d after Go(-7)", p.Page())
	}

	p.Go(3)
	p.Update(2)
	if p.Page() != 2 {
		t.Fatalf("shrinking listing left page at %d", p.Page())
	}
}
