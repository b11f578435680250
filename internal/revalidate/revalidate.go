// Package revalidate serves the on-demand revalidation hook the backend calls
// after publishing or updating articles.
package revalidate

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/logging"
	"github.com/hoppafit/website/internal/respond"
)

// Request is the hook body. Fields stay raw until the secret has been
// checked, so a malformed body from an unauthorized caller is still a 401.
type Request struct {
	Paths  json.RawMessage `json:"paths"`
	Secret json.RawMessage `json:"secret"`
}

func (rq *Request) Bind(r *http.Request) error { return nil }

// SecretValue is the secret when it is a JSON string, else empty.
func (rq *Request) SecretValue() string {
	var s string
	if err := json.Unmarshal(rq.Secret, &s); err != nil {
		return ""
	}

	return s
}

// PathList is nil unless paths is a non-empty array of strings.
func (rq *Request) PathList() []string {
	var paths []string
	if err := json.Unmarshal(rq.Paths, &paths); err != nil {
		return nil
	}

	return paths
}

type Response struct {
	Revalidated []string `json:"revalidated"`
	Message     string   `json:"message"`
	Note        string   `json:"note,omitempty"`
}

func (rs *Response) Render(w http.ResponseWriter, r *http.Request) error {
	if rs.Revalidated == nil {
		rs.Revalidated = []string{}
	}

	return nil
}

type Handler struct {
	// Secret must match the request's secret. Empty rejects every request.
	Secret string
	Purger Purger
}

func New(secret string, p Purger) *Handler {
	return &Handler{Secret: secret, Purger: p}
}

// Routes mounts under /api/revalidate.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.MethodNotAllowed(respond.MethodNotAllowed)
	r.Post("/", h.Revalidate)

	return r
}

func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	data := &Request{}
	if err := render.Bind(r, data); err != nil {
		data = &Request{}
	}

	if !h.authorized(data.SecretValue()) {
		respond.Error(w, r, errresponse.ErrMessage(http.StatusUnauthorized, "Invalid secret"))

		return
	}
	paths := data.PathList()
	if len(paths) == 0 {
		respond.Error(w, r, errresponse.ErrMessage(http.StatusBadRequest, "paths must be a non-empty array"))

		return
	}

	log := logging.FromContext(r.Context())
	resp := &Response{
		Revalidated: paths,
		Message:     fmt.Sprintf("Purged cache for %d path(s)", len(paths)),
	}
	if h.Purger != nil {
		if err := h.Purger.Purge(r.Context(), paths); err != nil {
			log.Errorw("Revalidation error", "paths", paths, "error", err)
			resp = &Response{
				Message: "Cache purge not available, relying on ISR timer",
				Note:    "This is expected in local development",
			}
		} else {
			log.Infow("revalidated", "paths", paths)
		}
	}

	if err := render.Render(w, r, resp); err != nil {
		respond.Error(w, r, errresponse.ErrRender(err))
	}
}

func (h *Handler) authorized(secret string) bool {
	if h.Secret == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.Secret)) == 1
}
