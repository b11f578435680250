package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	defaultKeyTTL        = time.Hour
	// unknownKidRefresh is the minimum gap between cert fetches caused by
	// tokens naming a key id the cache does not hold.
	unknownKidRefresh = time.Minute
)

var maxAgeRe = regexp.MustCompile(`max-age=(\d+)`)

// FirebaseVerifier validates Firebase ID tokens: RS256, signed by one of
// Google's published certificates, issued for ProjectID.
type FirebaseVerifier struct {
	ProjectID string
	CertsURL  string
	HTTP      *http.Client
	Now       func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expires   time.Time
	attempted time.Time

	refresh singleflight.Group
}

type firebaseClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewFirebaseVerifier(projectID, certsURL string) *FirebaseVerifier {
	return &FirebaseVerifier{
		ProjectID: projectID,
		CertsURL:  certsURL,
		HTTP:      &http.Client{Timeout: 5 * time.Second},
		Now:       time.Now,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			return v.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.ProjectID),
		jwt.WithIssuer(firebaseIssuerPrefix+v.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: verify id token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: id token has no subject")
	}

	return &Identity{UID: claims.Subject, Email: claims.Email, Token: token}, nil
}

func (v *FirebaseVerifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}

	return time.Now()
}

func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	now := v.now()
	expired := v.keys == nil || now.After(v.expires)
	k, ok := v.keys[kid]
	recent := now.Sub(v.attempted) < unknownKidRefresh
	v.mu.Unlock()

	switch {
	case !expired && ok:
		return k, nil
	case !expired && recent:
		return nil, fmt.Errorf("auth: unknown key id %q", kid)
	}

	_, err, _ := v.refresh.Do("certs", func() (interface{}, error) {
		return nil, v.fetchKeys(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	k, ok = v.keys[kid]
	v.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("auth: unknown key id %q", kid)
	}

	return k, nil
}

func (v *FirebaseVerifier) fetchKeys(ctx context.Context) error {
	v.mu.Lock()
	v.attempted = v.now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.CertsURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("auth: fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: fetch certs: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("auth: decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemText := range certs {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemText))
		if err != nil {
			return fmt.Errorf("auth: parse cert %s: %w", kid, err)
		}
		keys[kid] = k
	}

	ttl := defaultKeyTTL
	if m := maxAgeRe.FindStringSubmatch(resp.Header.Get("Cache-Control")); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			ttl = time.Duration(secs) * time.Second
		}
	}

	v.mu.Lock()
	v.keys = keys
	v.expires = v.now().Add(ttl)
	v.mu.Unlock()

	return nil
}
