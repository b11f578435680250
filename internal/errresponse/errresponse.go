package errresponse

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/backend"
)

// ErrResponse renderer type for handling all sorts of errors.
//
// Detail is what the client sees under "error": a short message for local
// rejections, or the upstream payload for proxied failures.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	Detail interface{} `json:"error"`
	Code   string      `json:"code,omitempty"` // machine-readable error code
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		Detail:         err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		Detail:         "Error rendering response.",
	}
}

// ErrUpstream replays a backend failure. A backend status error keeps its
// status code and body; anything else (timeouts, refused connections) is a 500.
func ErrUpstream(err error) render.Renderer {
	var se *backend.StatusError
	if errors.As(err, &se) {
		var detail interface{} = "Upstream request failed"
		if len(se.Body) > 0 {
			if json.Valid(se.Body) {
				detail = json.RawMessage(se.Body)
			} else {
				detail = string(se.Body)
			}
		}

		return &ErrResponse{Err: err, HTTPStatusCode: se.StatusCode, Detail: detail}
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		Detail:         map[string]string{"message": "Internal server error"},
	}
}

func ErrInternal(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		Detail:         "Internal server error",
	}
}

func ErrMessage(status int, msg string) render.Renderer {
	return &ErrResponse{HTTPStatusCode: status, Detail: msg}
}

// ErrCoded is ErrMessage with a code clients can switch on.
func ErrCoded(err error, status int, code, msg string) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: status, Detail: msg, Code: code}
}

var (
	ErrUnauthorized     = &ErrResponse{HTTPStatusCode: http.StatusUnauthorized, Detail: "Unauthorized"}
	ErrForbidden        = &ErrResponse{HTTPStatusCode: http.StatusForbidden, Detail: "Forbidden"}
	ErrNotFound         = &ErrResponse{HTTPStatusCode: http.StatusNotFound, Detail: "Resource not found."}
	ErrMethodNotAllowed = &ErrResponse{HTTPStatusCode: http.StatusMethodNotAllowed, Detail: "Method not allowed"}
)
