package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"Bearer ":      "",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		if got := BearerToken(r); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestRequire(t *testing.T) {
	called := 0
	var gotToken string
	h := NewGuard(nil).Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		gotToken = Token(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/forum/topics", nil))
	if w.Code != http.StatusUnauthorized || called != 0 {
		t.Fatalf("missing token: code=%d called=%d", w.Code, called)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != "Unauthorized" {
		t.Fatalf("body = %s", w.Body.String())
	}

	r := httptest.NewRequest(http.MethodPost, "/api/forum/topics", nil)
	r.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if called != 1 || gotToken != "tok" {
		t.Fatalf("valid token: called=%d token=%q", called, gotToken)
	}
}

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (*Identity, error) {
	return nil, errors.New("bad token")
}

func TestRequireInvalidToken(t *testing.T) {
	called := false
	h := NewGuard(rejectAll{}).Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	r := httptest.NewRequest(http.MethodDelete, "/", nil)
	r.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized || called {
		t.Fatalf("code=%d called=%v", w.Code, called)
	}
}

func TestOptional(t *testing.T) {
	var ok bool
	h := NewGuard(rejectAll{}).Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK || ok {
		t.Fatalf("invalid token on public route should pass anonymously: code=%d ok=%v", w.Code, ok)
	}
}

func TestResolveUser(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{UID: "u1", Token: "t"})

	if got, err := ResolveUser(ctx, ""); err != nil || got != "u1" {
		t.Errorf("empty claim: %q, %v", got, err)
	}
	if got, err := ResolveUser(ctx, "u1"); err != nil || got != "u1" {
		t.Errorf("matching claim: %q, %v", got, err)
	}
	if _, err := ResolveUser(ctx, "u2"); !errors.Is(err, ErrUserMismatch) {
		t.Errorf("mismatch: %v", err)
	}

	anon := WithIdentity(context.Background(), &Identity{Token: "t"})
	if got, err := ResolveUser(anon, "u2"); err != nil || got != "u2" {
		t.Errorf("presence-only identity should not enforce: %q, %v", got, err)
	}
}

func certServer(t *testing.T, kid string, key *rsa.PrivateKey) (*httptest.Server, *int) {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Cache-Control", "public, max-age=600")
		_ = json.NewEncoder(w).Encode(map[string]string{kid: pemText})
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestFirebaseVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	srv, hits := certServer(t, "k1", key)

	now := time.Now()
	v := NewFirebaseVerifier("hoppa", srv.URL)
	v.Now = func() time.Time { return now }

	good := signToken(t, key, "k1", firebaseClaims{
		Email: "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid-1",
			Issuer:    "https://securetoken.google.com/hoppa",
			Audience:  jwt.ClaimStrings{"hoppa"},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	id, err := v.Verify(context.Background(), good)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UID != "uid-1" || id.Email != "a@b.c" || id.Token != good {
		t.Fatalf("identity = %+v", id)
	}

	if _, err := v.Verify(context.Background(), good); err != nil {
		t.Fatal(err)
	}
	if *hits != 1 {
		t.Fatalf("certs fetched %d times, want 1 (cached)", *hits)
	}

	wrongAud := signToken(t, key, "k1", jwt.RegisteredClaims{
		Subject:   "uid-1",
		Issuer:    "https://securetoken.google.com/other",
		Audience:  jwt.ClaimStrings{"other"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if _, err := v.Verify(context.Background(), wrongAud); err == nil {
		t.Fatal("token for another project accepted")
	}

	expired := signToken(t, key, "k1", jwt.RegisteredClaims{
		Subject:   "uid-1",
		Issuer:    "https://securetoken.google.com/hoppa",
		Audience:  jwt.ClaimStrings{"hoppa"},
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	})
	if _, err := v.Verify(context.Background(), expired); err == nil {
		t.Fatal("expired token accepted")
	}

	other, _ := rsa.GenerateKey(rand.Reader, 2048)
	forged := signToken(t, other, "k1", jwt.RegisteredClaims{
		Subject:   "uid-1",
		Issuer:    "https://securetoken.google.com/hoppa",
		Audience:  jwt.ClaimStrings{"hoppa"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if _, err := v.Verify(context.Background(), forged); err == nil {
		t.Fatal("token signed by unknown key accepted")
	}
}

func TestFirebaseVerifierUnknownKidRateLimited(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	srv, hits := certServer(t, "k1", key)

	now := time.Now()
	v := NewFirebaseVerifier("hoppa", srv.URL)
	v.Now = func() time.Time { return now }

	claims := jwt.RegisteredClaims{
		Subject:   "uid-1",
		Issuer:    "https://securetoken.google.com/hoppa",
		Audience:  jwt.ClaimStrings{"hoppa"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	if _, err := v.Verify(context.Background(), signToken(t, key, "k1", claims)); err != nil {
		t.Fatal(err)
	}

	for _, kid := range []string{"x1", "x2", "x3", "x4"} {
		if _, err := v.Verify(context.Background(), signToken(t, key, kid, claims)); err == nil {
			t.Fatalf("token with kid %s accepted", kid)
		}
	}
	if *hits != 1 {
		t.Fatalf("certs fetched %d times for unknown kids, want 1", *hits)
	}

	now = now.Add(2 * unknownKidRefresh)
	for _, kid := range []string{"y1", "y2"} {
		_, _ = v.Verify(context.Background(), signToken(t, key, kid, claims))
	}
	if *hits != 2 {
		t.Fatalf("certs fetched %d times after the refresh gap, want 2", *hits)
	}
}
