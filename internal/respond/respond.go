// Package respond writes proxy responses through go-chi/render.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/logging"
)

// Raw writes an upstream JSON body with the given status.
func Raw(w http.ResponseWriter, r *http.Request, status int, raw json.RawMessage) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	render.Status(r, status)
	render.JSON(w, r, raw)
}

// Error renders e and logs if rendering itself fails.
func Error(w http.ResponseWriter, r *http.Request, e render.Renderer) {
	if err := render.Render(w, r, e); err != nil {
		logging.FromContext(r.Context()).Errorw("render error response", "error", err)
	}
}

// Upstream replays a backend failure to the client.
func Upstream(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Errorw("API Error", "path", r.URL.Path, "error", err)
	Error(w, r, errresponse.ErrUpstream(err))
}

// MethodNotAllowed is installed as the chi 405 handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, errresponse.ErrMethodNotAllowed)
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, errresponse.ErrNotFound)
}
