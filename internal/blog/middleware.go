package blog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/respond"
)

type ctxKey int8

const ctxKeyArticle ctxKey = iota

// articleRef is how the URL addresses an article: by id or by slug.
type articleRef struct {
	ID   string
	Slug string
}

// ArticleCtx middleware reads the article reference from the URL
// parameters passed through as the request. In case neither an id nor a
// slug is present, we stop here and return a 404.
func ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ref articleRef

		if articleID := chi.URLParam(r, "articleID"); articleID != "" {
			ref.ID = articleID
		} else if articleSlug := chi.URLParam(r, "articleSlug"); articleSlug != "" {
			ref.Slug = articleSlug
		} else {
			respond.Error(w, r, errresponse.ErrNotFound)

			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyArticle, ref)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func articleFrom(ctx context.Context) articleRef {
	ref, _ := ctx.Value(ctxKeyArticle).(articleRef)

	return ref
}
