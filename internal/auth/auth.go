// Package auth handles bearer ID tokens on the proxy endpoints.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/logging"
)

var (
	ErrNoToken      = errors.New("auth: missing bearer token")
	ErrUserMismatch = errors.New("auth: userId does not match token")
)

// Identity is the caller behind a bearer token. UID is empty when the
// verifier does not decode tokens.
type Identity struct {
	UID   string
	Email string
	Token string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// PresenceVerifier accepts any non-empty token and leaves validation to
// the backend.
type PresenceVerifier struct{}

func (PresenceVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	return &Identity{Token: token}, nil
}

type ctxKey int8

const ctxKeyIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(*Identity)

	return id, ok && id != nil
}

// Token returns the caller's bearer token, or "".
func Token(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok {
		return id.Token
	}

	return ""
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}

	return ""
}

// Guard wires a Verifier into request middleware.
type Guard struct {
	Verifier Verifier
}

func NewGuard(v Verifier) *Guard {
	if v == nil {
		v = PresenceVerifier{}
	}

	return &Guard{Verifier: v}
}

// Require rejects requests without a valid token with 401.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			g.reject(w, r, ErrNoToken)

			return
		}

		id, err := g.Verifier.Verify(r.Context(), token)
		if err != nil {
			g.reject(w, r, err)

			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches the caller's identity when a valid token is present and
// otherwise lets the request through anonymously.
func (g *Guard) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := BearerToken(r); token != "" {
			if id, err := g.Verifier.Verify(r.Context(), token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			} else {
				logging.FromContext(r.Context()).Debugw("ignoring invalid token on public route", "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Infow("unauthorized request", "path", r.URL.Path, "error", err)
	if rerr := render.Render(w, r, errresponse.ErrUnauthorized); rerr != nil {
		logging.FromContext(r.Context()).Errorw(rerr.Error())
	}
}

// ResolveUser checks a payload's userId against the verified caller. An
// empty claim is filled from the token; a different one is rejected.
func ResolveUser(ctx context.Context, claimed string) (string, error) {
	id, ok := FromContext(ctx)
	if !ok || id.UID == "" {
		return claimed, nil
	}
	if claimed == "" {
		return id.UID, nil
	}
	if claimed != id.UID {
		return "", ErrUserMismatch
	}

	return claimed, nil
}
