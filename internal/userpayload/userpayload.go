package userpayload

import (
	"errors"
	"net/http"

	"github.com/hoppafit/website/internal/model"
)

//--
// Request and Response payloads for the auth endpoints.
//
// The payloads wrap the data model objects.
//--

var (
	errEmailPassword = errors.New("email and password are required")
	errEmail         = errors.New("email is required")
)

// Credentials is the sign-in and registration request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Bind on Credentials will run after the unmarshalling is complete, its
// a good time to focus some post-processing after a decoding.
func (c *Credentials) Bind(r *http.Request) error {
	if c.Email == "" || c.Password == "" {
		return errEmailPassword
	}

	return nil
}

// GoogleSignIn carries the Google ID token obtained by the browser.
type GoogleSignIn struct {
	IDToken string `json:"idToken"`
}

func (g *GoogleSignIn) Bind(r *http.Request) error { return nil }

type PasswordReset struct {
	Email string `json:"email"`
}

func (p *PasswordReset) Bind(r *http.Request) error {
	if p.Email == "" {
		return errEmail
	}

	return nil
}

// UserPayload is the session view returned by every auth endpoint.
type UserPayload struct {
	User  *model.User `json:"user"`
	State string      `json:"state"`
}

func NewUserPayloadResponse(user *model.User, state string) *UserPayload {
	return &UserPayload{User: user, State: state}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	if u.State == "" {
		u.State = "signed_out"
		if u.User != nil {
			u.State = "signed_in"
		}
	}

	return nil
}

type TokenPayload struct {
	Token string `json:"token"`
}

func (t *TokenPayload) Render(w http.ResponseWriter, r *http.Request) error { return nil }
