// Package forum proxies topic and comment requests to the backend.
package forum

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/backend"
	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/model"
	"github.com/hoppafit/website/internal/respond"
)

// Backend is the subset of backend.Client the handlers use.
type Backend interface {
	Do(ctx context.Context, req backend.Request) (json.RawMessage, error)
}

type API struct {
	Backend Backend
}

func New(b Backend) *API {
	return &API{Backend: b}
}

// Routes mounts under /api/forum. Writes require a bearer token; every
// method on a single comment does.
func (a *API) Routes(g *auth.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.MethodNotAllowed(respond.MethodNotAllowed)

	r.Route("/topics", func(r chi.Router) {
		r.With(g.Optional).Get("/", a.ListTopics)
		r.With(g.Require).Post("/", a.CreateTopic)

		r.Route("/{topicID}", func(r chi.Router) {
			r.Use(TopicCtx)
			r.With(g.Optional).Get("/", a.GetTopic)
			r.With(g.Require).Patch("/", a.PatchTopic)
			r.With(g.Require).Delete("/", a.DeleteTopic)
			r.With(g.Require).Patch("/vote", a.VoteTopic)
		})
	})

	r.Route("/comments", func(r chi.Router) {
		r.Get("/", a.ListComments)
		r.With(g.Require).Post("/", a.CreateComment)

		r.Route("/{commentID}", func(r chi.Router) {
			r.Use(g.Require)
			r.Use(CommentCtx)
			r.Patch("/", a.UpdateComment)
			r.Delete("/", a.DeleteComment)
		})
	})

	return r
}

// ListTopics proxies the public topic listing with the caller's query.
func (a *API) ListTopics(w http.ResponseWriter, r *http.Request) {
	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodGet,
		Path:   "/forum/topics",
		Query:  r.URL.Query(),
	})
}

func (a *API) CreateTopic(w http.ResponseWriter, r *http.Request) {
	data := &TopicRequest{}
	if err := render.Bind(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	a.forward(w, r, http.StatusCreated, backend.Request{
		Method: http.MethodPost,
		Path:   "/topics",
		Body:   data.CreateTopic,
		Token:  auth.Token(r.Context()),
	})
}

// GetTopic forwards the caller's token when there is one so the backend can
// personalise the response.
func (a *API) GetTopic(w http.ResponseWriter, r *http.Request) {
	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodGet,
		Path:   "/topics/topicDetails",
		Query:  url.Values{"topicId": {topicID(r.Context())}},
		Token:  auth.Token(r.Context()),
	})
}

// PatchTopic is a vote when the body carries a value and an edit otherwise.
func (a *API) PatchTopic(w http.ResponseWriter, r *http.Request) {
	data := &TopicPatchRequest{}
	if err := render.Bind(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	id := topicID(r.Context())
	if data.IsVote() {
		a.vote(w, r, id, data.UserID, *data.Value)

		return
	}

	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodPatch,
		Path:   "/topics/update",
		Body: model.UpdateTopic{
			TopicID: id,
			UserID:  data.UserID,
			Title:   data.Title,
			Content: data.Content,
		},
		Token: auth.Token(r.Context()),
	})
}

func (a *API) VoteTopic(w http.ResponseWriter, r *http.Request) {
	data := &VoteRequest{}
	if err := render.Bind(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	a.vote(w, r, topicID(r.Context()), data.UserID, *data.Value)
}

func (a *API) vote(w http.ResponseWriter, r *http.Request, topicID, userID string, value int) {
	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodPatch,
		Path:   "/topics/vote",
		Body:   model.VoteTopic{UserID: userID, TopicID: topicID, Value: value},
		Token:  auth.Token(r.Context()),
	})
}

func (a *API) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	data := &OwnerRequest{}
	if err := bindOptional(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodDelete,
		Path:   "/topics",
		Body:   model.DeleteTopic{TopicID: topicID(r.Context()), UserID: data.UserID},
		Token:  auth.Token(r.Context()),
	})
}

// ListComments requires ?topicId and proxies the public comment listing.
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("topicId")
	if id == "" {
		badRequest(w, r, errTopicRequired)

		return
	}

	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodGet,
		Path:   "/forum/topics/" + url.PathEscape(id) + "/comments",
	})
}

func (a *API) CreateComment(w http.ResponseWriter, r *http.Request) {
	data := &CommentRequest{}
	if err := render.Bind(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	a.forward(w, r, http.StatusCreated, backend.Request{
		Method: http.MethodPost,
		Path:   "/comments",
		Body:   data.CreateComment,
		Token:  auth.Token(r.Context()),
	})
}

func (a *API) UpdateComment(w http.ResponseWriter, r *http.Request) {
	data := &CommentPatchRequest{}
	if err := render.Bind(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodPatch,
		Path:   "/comments/update",
		Body: model.UpdateComment{
			CommentID: commentID(r.Context()),
			UserID:    data.UserID,
			Content:   data.Content,
		},
		Token: auth.Token(r.Context()),
	})
}

func (a *API) DeleteComment(w http.ResponseWriter, r *http.Request) {
	data := &OwnerRequest{}
	if err := bindOptional(r, data); err != nil {
		badRequest(w, r, err)

		return
	}

	a.forward(w, r, http.StatusOK, backend.Request{
		Method: http.MethodDelete,
		Path:   "/comments",
		Body:   model.DeleteComment{CommentID: commentID(r.Context()), UserID: data.UserID},
		Token:  auth.Token(r.Context()),
	})
}

func (a *API) forward(w http.ResponseWriter, r *http.Request, status int, req backend.Request) {
	raw, err := a.Backend.Do(r.Context(), req)
	if err != nil {
		respond.Upstream(w, r, err)

		return
	}

	respond.Raw(w, r, status, raw)
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrUserMismatch) {
		respond.Error(w, r, errresponse.ErrForbidden)

		return
	}

	respond.Error(w, r, errresponse.ErrInvalidRequest(err))
}
