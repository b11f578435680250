// Package blog proxies article reads to the backend and keeps successful
// responses in a page cache until they expire or are revalidated.
package blog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/backend"
	"github.com/hoppafit/website/internal/cachetag"
	"github.com/hoppafit/website/internal/paginate"
	"github.com/hoppafit/website/internal/respond"
)

const articlesPath = "/blog/articles"

// IndexPage is the site page every listing read feeds.
const IndexPage = "/blog"

type Backend interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

type API struct {
	Backend Backend
	// Pages caches successful reads. Nil disables caching.
	Pages *cachetag.Store
}

func New(b Backend, pages *cachetag.Store) *API {
	return &API{Backend: b, Pages: pages}
}

// Routes mounts under /api/blog/articles.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.MethodNotAllowed(respond.MethodNotAllowed)

	r.With(paginate.Middleware).Get("/", a.ListArticles)
	r.Get("/featured", a.FeaturedArticles)
	r.Get("/latest", a.LatestArticles)
	r.Get("/categories", a.Categories)
	r.Get("/tags", a.Tags)

	r.Route("/slug/{articleSlug}", func(r chi.Router) {
		r.Use(ArticleCtx)
		r.Get("/", a.GetArticleBySlug)
	})

	r.Route("/{articleID}", func(r chi.Router) {
		r.Use(ArticleCtx)
		r.Get("/related", a.RelatedArticles)
		r.Post("/view", a.IncrementViews)
	})

	return r
}

// ListArticles proxies the paginated listing. Page and limit are always
// sent, clamped to their valid ranges.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := paginate.FromContext(r.Context()).Apply(r.URL.Query())
	a.read(w, r, articlesPath, q, cachetag.Path(IndexPage))
}

func (a *API) FeaturedArticles(w http.ResponseWriter, r *http.Request) {
	a.read(w, r, articlesPath+"/featured", limitOnly(r.URL.Query()), cachetag.Path(IndexPage))
}

func (a *API) LatestArticles(w http.ResponseWriter, r *http.Request) {
	a.read(w, r, articlesPath+"/latest", limitOnly(r.URL.Query()), cachetag.Path(IndexPage))
}

func (a *API) Categories(w http.ResponseWriter, r *http.Request) {
	a.read(w, r, articlesPath+"/categories", nil, cachetag.Path(IndexPage))
}

func (a *API) Tags(w http.ResponseWriter, r *http.Request) {
	a.read(w, r, articlesPath+"/tags", nil, cachetag.Path(IndexPage))
}

// GetArticleBySlug feeds the article page, so it is tagged with that page.
func (a *API) GetArticleBySlug(w http.ResponseWriter, r *http.Request) {
	slug := articleFrom(r.Context()).Slug
	a.read(w, r, articlesPath+"/slug/"+url.PathEscape(slug), nil, cachetag.Path(IndexPage+"/"+slug))
}

func (a *API) RelatedArticles(w http.ResponseWriter, r *http.Request) {
	id := articleFrom(r.Context()).ID
	a.read(w, r, articlesPath+"/"+url.PathEscape(id)+"/related", r.URL.Query(), cachetag.Path(IndexPage))
}

// IncrementViews forwards the view counter bump. It is never cached.
func (a *API) IncrementViews(w http.ResponseWriter, r *http.Request) {
	id := articleFrom(r.Context()).ID
	raw, err := a.Backend.Do(r.Context(), backend.Request{
		Method: http.MethodPost,
		Path:   articlesPath + "/" + url.PathEscape(id) + "/view",
	})
	if err != nil {
		respond.Upstream(w, r, err)

		return
	}

	respond.Raw(w, r, http.StatusOK, raw)
}

func (a *API) read(w http.ResponseWriter, r *http.Request, path string, q url.Values, tags ...cachetag.Tag) {
	fetch := func(ctx context.Context) (interface{}, []cachetag.Tag, error) {
		raw, err := a.Backend.Do(ctx, backend.Request{Method: http.MethodGet, Path: path, Query: q})

		return raw, tags, err
	}

	var (
		v   interface{}
		err error
	)
	if a.Pages == nil {
		v, _, err = fetch(r.Context())
	} else {
		v, err = a.Pages.Query(r.Context(), cacheKey(path, q), fetch)
	}
	if err != nil {
		respond.Upstream(w, r, err)

		return
	}

	raw, _ := v.(json.RawMessage)
	respond.Raw(w, r, http.StatusOK, raw)
}

func cacheKey(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}

	return path + "?" + q.Encode()
}

func limitOnly(q url.Values) url.Values {
	if l := q.Get("limit"); l != "" {
		return url.Values{"limit": {l}}
	}

	return nil
}
