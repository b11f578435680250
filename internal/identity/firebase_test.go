package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&Error{Code: CodeUserNotFound}, "No user found with this email."},
		{&Error{Code: CodeWrongPassword, Message: "raw"}, "Incorrect password."},
		{&Error{Code: CodeEmailInUse}, "This email is already registered."},
		{&Error{Code: CodeWeakPassword}, "Password should be at least 6 characters."},
		{&Error{Code: CodeInvalidEmail}, "Invalid email address."},
		{&Error{Code: CodeNetworkFailed}, "Network error. Please check your connection."},
		{&Error{Code: CodeTooManyRequests}, "Too many attempts. Please try again later."},
		{&Error{Code: CodePopupClosed}, "Sign-in popup was closed."},
		{&Error{Code: "auth/operation-not-allowed", Message: "Password sign-in is disabled"}, "Password sign-in is disabled"},
		{&Error{Code: "auth/internal-error"}, "An error occurred. Please try again."},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRestError(t *testing.T) {
	tests := map[string]string{
		"EMAIL_NOT_FOUND":                     CodeUserNotFound,
		"INVALID_PASSWORD":                    CodeWrongPassword,
		"EMAIL_EXISTS":                        CodeEmailInUse,
		"WEAK_PASSWORD : Password too short":  CodeWeakPassword,
		"INVALID_EMAIL":                       CodeInvalidEmail,
		"TOO_MANY_ATTEMPTS_TRY_LATER : later": CodeTooManyRequests,
		"OPERATION_NOT_ALLOWED":               "auth/operation-not-allowed",
	}
	for raw, want := range tests {
		if got := restError(raw).Code; got != want {
			t.Errorf("restError(%q).Code = %q, want %q", raw, got, want)
		}
	}
}

func TestFirebaseProvider(t *testing.T) {
	var paths []string
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "api-key" {
			w.WriteHeader(http.StatusForbidden)

			return
		}
		paths = append(paths, r.URL.Path)

		if r.URL.Path == "/token" {
			_ = r.ParseForm()
			if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "r1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_REFRESH_TOKEN"}}`))

				return
			}
			_, _ = w.Write([]byte(`{"id_token":"t2","refresh_token":"r2","expires_in":"3600","user_id":"u1"}`))

			return
		}

		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		switch r.URL.Path {
		case "/v1/accounts:signInWithPassword":
			if body["password"] != "secret1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD","errors":[]}}`))

				return
			}
			_, _ = w.Write([]byte(`{"localId":"u1","email":"a@b.c","displayName":"Ann","idToken":"t1","refreshToken":"r1","expiresIn":"60"}`))
		case "/v1/accounts:signInWithIdp", "/v1/accounts:signUp":
			_, _ = w.Write([]byte(`{"localId":"u2","email":"g@b.c","idToken":"t","refreshToken":"r","expiresIn":"3600"}`))
		case "/v1/accounts:sendOobCode":
			_, _ = w.Write([]byte(`{"email":"a@b.c"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	now := time.Unix(1700000000, 0)
	p := NewFirebaseProvider("api-key", "https://hoppa.fit")
	p.IdentityURL = srv.URL + "/v1"
	p.TokenURL = srv.URL + "/token"
	p.Now = func() time.Time { return now }
	ctx := context.Background()

	c, err := p.SignIn(ctx, "a@b.c", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if c.UID != "u1" || c.DisplayName != "Ann" || c.IDToken != "t1" || !c.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("credentials = %+v", c)
	}

	_, err = p.SignIn(ctx, "a@b.c", "bad")
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeWrongPassword {
		t.Fatalf("wrong password err = %v", err)
	}

	if _, err := p.SignInWithGoogle(ctx, "google-token"); err != nil {
		t.Fatal(err)
	}
	idp := bodies[len(bodies)-1]
	if idp["postBody"] != "id_token=google-token&providerId=google.com" || idp["requestUri"] != "https://hoppa.fit" {
		t.Fatalf("idp body = %v", idp)
	}

	if err := p.SendPasswordReset(ctx, "a@b.c"); err != nil {
		t.Fatal(err)
	}
	if reset := bodies[len(bodies)-1]; reset["requestType"] != "PASSWORD_RESET" || reset["email"] != "a@b.c" {
		t.Fatalf("reset body = %v", reset)
	}

	fresh, err := p.Refresh(ctx, "r1")
	if err != nil || fresh.IDToken != "t2" || fresh.RefreshToken != "r2" {
		t.Fatalf("refresh = %+v, %v", fresh, err)
	}
	if _, err := p.Refresh(ctx, "stale"); !errors.As(err, &e) || e.Code != CodeTokenExpired {
		t.Fatalf("stale refresh err = %v", err)
	}
}

func TestFirebaseProviderNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := NewFirebaseProvider("k", "")
	p.IdentityURL = srv.URL

	_, err := p.SignIn(context.Background(), "a@b.c", "x")
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeNetworkFailed {
		t.Fatalf("err = %v", err)
	}
	if Message(err) != "Network error. Please check your connection." {
		t.Fatalf("message = %q", Message(err))
	}
}
