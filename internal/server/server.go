// Package server assembles the site's HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hoppafit/website/internal/analytics"
	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/blog"
	"github.com/hoppafit/website/internal/forum"
	"github.com/hoppafit/website/internal/identity"
	"github.com/hoppafit/website/internal/logging"
	"github.com/hoppafit/website/internal/respond"
	"github.com/hoppafit/website/internal/revalidate"
	"github.com/hoppafit/website/internal/sitemap"
	"github.com/hoppafit/website/internal/telemetry"
)

// Deps are the mounted modules. Nil Identity or Analytics leaves that
// subtree unmounted.
type Deps struct {
	Logger  *zap.SugaredLogger
	Metrics *telemetry.Metrics
	Guard   *auth.Guard

	Forum      *forum.API
	Blog       *blog.API
	Analytics  *analytics.API
	Identity   *identity.API
	Revalidate *revalidate.Handler
	Sitemap    *sitemap.Handler
}

func New(d Deps) chi.Router {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	guard := d.Guard
	if guard == nil {
		guard = auth.NewGuard(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.NotFound(respond.NotFound)
	r.MethodNotAllowed(respond.MethodNotAllowed)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debugw("ping")
		if _, err := w.Write([]byte("pong")); err != nil {
			logging.FromContext(r.Context()).Errorw(err.Error())
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/forum", d.Forum.Routes(guard))
		r.Mount("/blog/articles", d.Blog.Routes())
		r.Mount("/revalidate", d.Revalidate.Routes())
		if d.Analytics != nil {
			r.With(guard.Optional).Mount("/analytics", d.Analytics.Routes())
		}
		if d.Identity != nil {
			r.Mount("/auth", d.Identity.Routes())
		}
	})

	r.Get("/sitemap.xml", d.Sitemap.Static)
	r.Get("/server-sitemap.xml", d.Sitemap.Articles)

	return r
}
