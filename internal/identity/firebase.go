package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

// Credentials is a signed-in account and its tokens.
type Credentials struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	IDToken       string    `json:"idToken"`
	RefreshToken  string    `json:"refreshToken"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Provider is an identity backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	// SignInWithGoogle exchanges a Google ID token for provider credentials.
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Credentials, error)
	SendPasswordReset(ctx context.Context, email string) error
	// Refresh trades a refresh token for a fresh ID token.
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
}

// FirebaseProvider talks to the Firebase Auth REST API.
type FirebaseProvider struct {
	APIKey      string
	IdentityURL string
	TokenURL    string
	// RequestURI is sent as requestUri on IdP sign-ins.
	RequestURI string
	HTTP       *http.Client
	Now        func() time.Time
}

func NewFirebaseProvider(apiKey, siteURL string) *FirebaseProvider {
	return &FirebaseProvider{
		APIKey:      apiKey,
		IdentityURL: defaultIdentityURL,
		TokenURL:    defaultTokenURL,
		RequestURI:  siteURL,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
}

type accountResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

type restErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	return p.account(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	return p.account(ctx, "accounts:signUp", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *FirebaseProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Credentials, error) {
	post := url.Values{"id_token": {googleIDToken}, "providerId": {"google.com"}}
	requestURI := p.RequestURI
	if requestURI == "" {
		requestURI = "http://localhost"
	}

	return p.account(ctx, "accounts:signInWithIdp", map[string]interface{}{
		"postBody":            post.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	var out struct {
		Email string `json:"email"`
	}

	return p.postJSON(ctx, p.identityURL()+"/accounts:sendOobCode", map[string]interface{}{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, &out)
}

func (p *FirebaseProvider) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}

	var out refreshResponse
	if err := p.do(ctx, p.tokenURL(), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out); err != nil {
		return nil, err
	}

	return &Credentials{
		UID:          out.UserID,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    p.expiry(out.ExpiresIn),
	}, nil
}

func (p *FirebaseProvider) account(ctx context.Context, method string, body interface{}) (*Credentials, error) {
	var out accountResponse
	if err := p.postJSON(ctx, p.identityURL()+"/"+method, body, &out); err != nil {
		return nil, err
	}

	return &Credentials{
		UID:           out.LocalID,
		Email:         out.Email,
		DisplayName:   out.DisplayName,
		EmailVerified: out.EmailVerified,
		IDToken:       out.IDToken,
		RefreshToken:  out.RefreshToken,
		ExpiresAt:     p.expiry(out.ExpiresIn),
	}, nil
}

func (p *FirebaseProvider) postJSON(ctx context.Context, u string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("identity: encode request: %w", err)
	}

	return p.do(ctx, u, "application/json", bytes.NewReader(raw), out)
}

func (p *FirebaseProvider) do(ctx context.Context, u, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u+"?key="+url.QueryEscape(p.APIKey), body)
	if err != nil {
		return fmt.Errorf("identity: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb restErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			return restError(eb.Error.Message)
		}

		return &Error{Code: "auth/internal-error", Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity: decode response: %w", err)
	}

	return nil
}

func (p *FirebaseProvider) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}

	return p.now().Add(time.Duration(secs) * time.Second)
}

func (p *FirebaseProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now()
}

func (p *FirebaseProvider) identityURL() string {
	if p.IdentityURL == "" {
		return defaultIdentityURL
	}

	return strings.TrimRight(p.IdentityURL, "/")
}

func (p *FirebaseProvider) tokenURL() string {
	if p.TokenURL == "" {
		return defaultTokenURL
	}

	return p.TokenURL
}
