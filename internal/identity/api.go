package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hoppafit/website/internal/analytics"
	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/logging"
	"github.com/hoppafit/website/internal/respond"
	"github.com/hoppafit/website/internal/userpayload"
)

// Events receives the sign-in lifecycle. analytics.API implements it.
type Events interface {
	Track(w http.ResponseWriter, r *http.Request, userID string, e analytics.Event) bool
	Platform() string
}

type API struct {
	Manager      *Manager
	CookieName   string
	SecureCookie bool
	// Events is optional.
	Events Events
}

func NewAPI(m *Manager, cookieName string, secure bool, events Events) *API {
	return &API{Manager: m, CookieName: cookieName, SecureCookie: secure, Events: events}
}

// Routes mounts under /api/auth. Every successful sign-in starts a new
// session id.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.MethodNotAllowed(respond.MethodNotAllowed)

	r.Post("/login", a.Login)
	r.Post("/register", a.Register)
	r.Post("/google", a.Google)
	r.Post("/reset", a.ResetPassword)
	r.Post("/logout", a.Logout)
	r.Get("/session", a.GetSession)
	r.Get("/token", a.GetToken)

	return r
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.Credentials{}
	if err := render.Bind(r, data); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	s := a.Manager.New()
	if err := s.SignIn(r.Context(), data.Email, data.Password); err != nil {
		a.fail(w, r, err)

		return
	}
	a.signedIn(w, r, s, analytics.UserSignedIn(analytics.AuthEmail))
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.Credentials{}
	if err := render.Bind(r, data); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	s := a.Manager.New()
	if err := s.Register(r.Context(), data.Email, data.Password); err != nil {
		a.fail(w, r, err)

		return
	}

	platform := "web"
	if a.Events != nil {
		platform = a.Events.Platform()
	}
	a.signedIn(w, r, s, analytics.UserSignedUp(analytics.AuthEmail, platform))
}

func (a *API) Google(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.GoogleSignIn{}
	if err := render.Bind(r, data); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	s := a.Manager.New()
	if err := s.SignInWithGoogle(r.Context(), data.IDToken); err != nil {
		a.fail(w, r, err)

		return
	}
	a.signedIn(w, r, s, analytics.UserSignedIn(analytics.AuthGoogle))
}

func (a *API) ResetPassword(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.PasswordReset{}
	if err := render.Bind(r, data); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	if err := a.Manager.New().ResetPassword(r.Context(), data.Email); err != nil {
		a.fail(w, r, err)

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]bool{"sent": true})
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	s := a.session(r)
	uid := ""
	if u := s.User(); u != nil {
		uid = u.UID
	}
	if err := s.SignOut(r.Context()); err != nil {
		a.fail(w, r, err)

		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	if uid != "" && a.Events != nil {
		a.Events.Track(w, r, uid, analytics.UserSignedOut())
	}

	a.render(w, r, userpayload.NewUserPayloadResponse(nil, StateSignedOut.String()))
}

// GetSession reports the visitor's sign-in state without creating a session.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	s := a.session(r)
	a.render(w, r, userpayload.NewUserPayloadResponse(s.User(), s.State().String()))
}

// GetToken returns a fresh ID token for the signed-in visitor.
func (a *API) GetToken(w http.ResponseWriter, r *http.Request) {
	token, err := a.session(r).Token(r.Context())
	if err != nil {
		a.fail(w, r, err)

		return
	}
	if token == "" {
		respond.Error(w, r, errresponse.ErrUnauthorized)

		return
	}

	a.render(w, r, &userpayload.TokenPayload{Token: token})
}

func (a *API) session(r *http.Request) *Session {
	if ck, err := r.Cookie(a.CookieName); err == nil && ck.Value != "" {
		return a.Manager.Resume(r.Context(), ck.Value)
	}

	return a.Manager.New()
}

func (a *API) signedIn(w http.ResponseWriter, r *http.Request, s *Session, ev analytics.Event) {
	ck := &http.Cookie{
		Name:     a.CookieName,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if a.Manager.TTL > 0 {
		ck.MaxAge = int(a.Manager.TTL / time.Second)
	}
	http.SetCookie(w, ck)

	user := s.User()
	if a.Events != nil && user != nil {
		a.Events.Track(w, r, user.UID, ev)
	}

	a.render(w, r, userpayload.NewUserPayloadResponse(user, s.State().String()))
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		logging.FromContext(r.Context()).Errorw("session store failed", "error", err)
		respond.Error(w, r, errresponse.ErrInternal(err))

		return
	}

	logging.FromContext(r.Context()).Infow("auth failed", "code", e.Code, "error", err)
	respond.Error(w, r, errresponse.ErrCoded(err, statusFor(e.Code), e.Code, e.Display()))
}

func (a *API) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		respond.Error(w, r, errresponse.ErrRender(err))
	}
}

func statusFor(code string) int {
	switch code {
	case CodeUserNotFound, CodeWrongPassword, CodeInvalidCredentials, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeNetworkFailed:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
