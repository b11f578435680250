package paginate

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

// Params is a clamped page request: Page >= 1, 1 <= Limit <= MaxLimit.
type Params struct {
	Page  int
	Limit int
}

// FromQuery reads page and limit off q. Missing or malformed values take
// the defaults; out-of-range values are clamped.
func FromQuery(q url.Values) Params {
	p := Params{Page: 1, Limit: DefaultLimit}

	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = v
	}

	return p.clamp()
}

func (p Params) clamp() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return p
}

// Apply writes the params back into q.
func (p Params) Apply(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	out.Set("page", strconv.Itoa(p.Page))
	out.Set("limit", strconv.Itoa(p.Limit))

	return out
}

type ctxKey int8

const ctxKeyParams ctxKey = iota

// Middleware parses the page request once and stores it on the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxKeyParams, FromQuery(r.URL.Query()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the params stored by Middleware, or the defaults.
func FromContext(ctx context.Context) Params {
	if p, ok := ctx.Value(ctxKeyParams).(Params); ok {
		return p
	}

	return Params{Page: 1, Limit: DefaultLimit}
}

// Pager tracks the visible page of a paginated listing. It never moves
// below page 1 or past TotalPages.
type Pager struct {
	page       int
	totalPages int
}

func NewPager() *Pager {
	return &Pager{page: 1}
}

func (p *Pager) Page() int { return p.page }

func (p *Pager) TotalPages() int { return p.totalPages }

// Update records the total reported by the latest response and pulls the
// current page back into range if the listing shrank.
func (p *Pager) Update(totalPages int) {
	if totalPages < 0 {
		totalPages = 0
	}
	p.totalPages = totalPages
	p.page = p.bound(p.page)
}

func (p *Pager) HasNext() bool { return p.page < p.totalPages }

func (p *Pager) HasPrev() bool { return p.page > 1 }

// Next advances one page and reports whether the page changed.
func (p *Pager) Next() bool { return p.Go(p.page + 1) }

func (p *Pager) Prev() bool { return p.Go(p.page - 1) }

// Go moves to page n, clamped to the valid range.
func (p *Pager) Go(n int) bool {
	n = p.bound(n)
	changed := n != p.page
	p.page = n

	return changed
}

// bound treats an unknown or empty listing as a single page.
func (p *Pager) bound(n int) int {
	if n > p.totalPages {
		n = p.totalPages
	}
	if n < 1 {
		n = 1
	}

	return n
}
