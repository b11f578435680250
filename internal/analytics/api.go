package analytics

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/errresponse"
	"github.com/hoppafit/website/internal/respond"
)

// DeviceCookie carries the anonymous visitor id between requests.
const DeviceCookie = "hoppa_device_id"

var (
	errGrantedRequired = errors.New("granted is required")
	errUnknownEvent    = errors.New("unknown event name")
)

type ConsentRequest struct {
	Granted *bool `json:"granted"`
}

func (c *ConsentRequest) Bind(r *http.Request) error {
	if c.Granted == nil {
		return errGrantedRequired
	}

	return nil
}

type EventRequest struct {
	Name           string                 `json:"name"`
	Properties     map[string]interface{} `json:"properties"`
	UserProperties map[string]interface{} `json:"userProperties"`
}

func (e *EventRequest) Bind(r *http.Request) error {
	if !Known(e.Name) {
		return errUnknownEvent
	}

	return nil
}

type ConsentResponse struct {
	Consent     string `json:"consent"`
	Initialized bool   `json:"initialized"`
}

func (c *ConsentResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type EventResponse struct {
	Tracked  bool   `json:"tracked"`
	DeviceID string `json:"deviceId"`
}

func (e *EventResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// API exposes consent and event tracking to the site.
type API struct {
	Dispatcher    *Dispatcher
	ConsentCookie string
	SecureCookies bool
}

func NewAPI(d *Dispatcher, consentCookie string, secure bool) *API {
	return &API{Dispatcher: d, ConsentCookie: consentCookie, SecureCookies: secure}
}

// Routes mounts under /api/analytics. Callers are expected to run
// auth.Guard.Optional in front so signed-in visitors get their user id.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.MethodNotAllowed(respond.MethodNotAllowed)

	r.Get("/consent", a.GetConsent)
	r.Post("/consent", a.SetConsent)
	r.Post("/events", a.TrackEvent)

	return r
}

func (a *API) GetConsent(w http.ResponseWriter, r *http.Request) {
	t := a.tracker(w, r)
	t.Resume()

	render.Status(r, http.StatusOK)
	a.render(w, r, &ConsentResponse{Consent: consentName(t.consent.Consent()), Initialized: t.Initialized()})
}

// SetConsent stores the choice in the consent cookie. Accepting also
// records cookie_consent_given.
func (a *API) SetConsent(w http.ResponseWriter, r *http.Request) {
	data := &ConsentRequest{}
	if err := render.Bind(r, data); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	t := a.tracker(w, r)
	if err := t.SetConsent(*data.Granted); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}
	if ev, ok := CookieConsentGiven(*data.Granted); ok {
		a.identify(r, t)
		t.Track(ev)
	}

	render.Status(r, http.StatusOK)
	a.render(w, r, &ConsentResponse{Consent: consentName(t.consent.Consent()), Initialized: t.Initialized()})
}

// TrackEvent answers 202 when the event was dispatched and 204 when the
// visitor has not consented.
func (a *API) TrackEvent(w http.ResponseWriter, r *http.Request) {
	data := &EventRequest{}
	if err := render.Bind(r, data); err != nil {
		respond.Error(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	t := a.tracker(w, r)
	if !t.Resume() {
		w.WriteHeader(http.StatusNoContent)

		return
	}
	a.identify(r, t)
	t.SetUserProperties(data.UserProperties)
	t.Track(Event{Name: data.Name, Properties: data.Properties})

	render.Status(r, http.StatusAccepted)
	a.render(w, r, &EventResponse{Tracked: true, DeviceID: t.DeviceID()})
}

func (a *API) tracker(w http.ResponseWriter, r *http.Request) *Tracker {
	deviceID := ""
	if ck, err := r.Cookie(DeviceCookie); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			deviceID = ck.Value
		}
	}
	if deviceID == "" {
		deviceID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     DeviceCookie,
			Value:    deviceID,
			Path:     "/",
			MaxAge:   int(consentMaxAge / time.Second),
			Secure:   a.SecureCookies,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return a.Dispatcher.Tracker(NewCookieConsent(w, r, a.ConsentCookie, a.SecureCookies), deviceID)
}

func (a *API) identify(r *http.Request, t *Tracker) {
	if id, ok := auth.FromContext(r.Context()); ok && id.UID != "" {
		t.SetUserID(id.UID)
	}
}

func (a *API) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		respond.Error(w, r, errresponse.ErrRender(err))
	}
}

func consentName(c Consent) string {
	switch c {
	case ConsentGranted:
		return "granted"
	case ConsentDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Track records e for the calling visitor on behalf of another handler,
// as userID when it is set. It reports whether the event was dispatched.
func (a *API) Track(w http.ResponseWriter, r *http.Request, userID string, e Event) bool {
	t := a.tracker(w, r)
	if !t.Resume() {
		return false
	}
	if userID != "" {
		t.SetUserID(userID)
	} else {
		a.identify(r, t)
	}

	return t.Track(e)
}

func (a *API) Platform() string { return a.Dispatcher.Platform() }
