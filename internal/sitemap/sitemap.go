// Package sitemap serves the static page sitemap and the article sitemap
// built from the live backend listing.
package sitemap

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/backend"
	"github.com/hoppafit/website/internal/logging"
	"github.com/hoppafit/website/internal/model"
)

const (
	Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// articleLimit is how many articles the article sitemap asks for.
	articleLimit = 1000

	isoMillis = "2006-01-02T15:04:05.000Z"
)

// StaticPages are the site pages listed in /sitemap.xml.
var StaticPages = []string{"/", "/blog", "/forum", "/home", "/privacy", "/terms"}

// Priority renders with one decimal place, e.g. 1.0 and 0.8.
type Priority float64

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(p), 'f', 1, 64)), nil
}

type URL struct {
	Loc        string   `xml:"loc"`
	LastMod    string   `xml:"lastmod,omitempty"`
	ChangeFreq string   `xml:"changefreq,omitempty"`
	Priority   Priority `xml:"priority"`
}

type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Rank returns the change frequency and priority of a site path.
func Rank(path string) (string, Priority) {
	switch {
	case path == "/":
		return "daily", 1.0
	case path == "/blog", path == "/forum":
		return "daily", 0.9
	case strings.HasPrefix(path, "/blog/"), strings.HasPrefix(path, "/forum/"):
		return "weekly", 0.8
	case path == "/privacy", path == "/terms":
		return "monthly", 0.3
	default:
		return "weekly", 0.7
	}
}

type Backend interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

type Handler struct {
	Backend Backend
	SiteURL string
	Now     func() time.Time
}

func New(b Backend, siteURL string) *Handler {
	return &Handler{Backend: b, SiteURL: strings.TrimRight(siteURL, "/"), Now: time.Now}
}

// Static serves /sitemap.xml.
func (h *Handler) Static(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	set := newURLSet()
	for _, p := range StaticPages {
		freq, prio := Rank(p)
		loc := h.SiteURL + p
		if p == "/" {
			loc = h.SiteURL
		}
		set.URLs = append(set.URLs, URL{Loc: loc, LastMod: now, ChangeFreq: freq, Priority: prio})
	}

	render.XML(w, r, set)
}

// Articles serves /server-sitemap.xml. A failed listing yields an empty
// urlset.
func (h *Handler) Articles(w http.ResponseWriter, r *http.Request) {
	set := newURLSet()

	items, err := h.articles(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Errorw("Error generating server-sitemap.xml", "error", err)
	}
	now := h.now()
	for _, a := range items {
		lastmod := a.UpdatedAt
		if lastmod == "" {
			lastmod = a.PublishedAt
		}
		if lastmod == "" {
			lastmod = now
		}
		set.URLs = append(set.URLs, URL{
			Loc:        h.SiteURL + "/blog/" + a.Slug,
			LastMod:    lastmod,
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}

	render.XML(w, r, set)
}

func (h *Handler) articles(ctx context.Context) ([]model.ArticleListItem, error) {
	raw, err := h.Backend.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   "/blog/articles",
		Query:  url.Values{"limit": {strconv.Itoa(articleLimit)}},
	})
	if err != nil {
		return nil, err
	}

	var page model.PaginatedArticles
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, err
	}

	return page.Items, nil
}

func (h *Handler) now() string {
	now := h.Now
	if now == nil {
		now = time.Now
	}

	return now().UTC().Format(isoMillis)
}

func newURLSet() *URLSet {
	return &URLSet{Xmlns: Namespace, URLs: []URL{}}
}
