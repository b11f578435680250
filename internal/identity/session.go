// Package identity is the sign-in façade over Firebase Auth: a per-visitor
// session state machine backed by a Provider and a Store.
package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hoppafit/website/internal/model"
)

type State int8

const (
	// StateLoading is the state before Restore has run.
	StateLoading State = iota
	StateSignedOut
	// StateAuthenticating lasts while a sign-in or registration is in flight.
	StateAuthenticating
	StateSignedIn
	// StateError follows a failed sign-in from a signed-out session.
	// LastError holds the message.
	StateError
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed_out"
	case StateAuthenticating:
		return "authenticating"
	case StateSignedIn:
		return "signed_in"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

// refreshSkew refreshes ID tokens slightly before they expire.
const refreshSkew = time.Minute

// Session is one visitor's authentication state. It is safe for concurrent
// use.
type Session struct {
	id       string
	provider Provider
	store    Store
	ttl      time.Duration
	now      func() time.Time

	restore sync.Once

	mu      sync.Mutex
	state   State
	creds   *Credentials
	lastErr string
}

// ID is the opaque session id carried by the session cookie.
func (s *Session) ID() string { return s.id }

// Restore loads a persisted sign-in. Only the first call has any effect.
func (s *Session) Restore(ctx context.Context) {
	s.restore.Do(func() {
		c, err := s.store.Load(ctx, s.id)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != StateLoading {
			return
		}
		if err != nil {
			s.state = StateSignedOut

			return
		}
		s.creds, s.state = c, StateSignedIn
	})
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// User returns the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return nil
	}

	return &model.User{
		UID:           s.creds.UID,
		Email:         s.creds.Email,
		DisplayName:   s.creds.DisplayName,
		EmailVerified: s.creds.EmailVerified,
	}
}

// LastError is the user-facing message of the last failed operation. It is
// cleared when an operation starts.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

func (s *Session) SignIn(ctx context.Context, email, password string) error {
	return s.signIn(ctx, func() (*Credentials, error) {
		return s.provider.SignIn(ctx, strings.TrimSpace(email), password)
	})
}

func (s *Session) Register(ctx context.Context, email, password string) error {
	return s.signIn(ctx, func() (*Credentials, error) {
		return s.provider.SignUp(ctx, strings.TrimSpace(email), password)
	})
}

// SignInWithGoogle completes a Google sign-in. An empty token means the
// visitor closed the Google prompt.
func (s *Session) SignInWithGoogle(ctx context.Context, googleIDToken string) error {
	return s.signIn(ctx, func() (*Credentials, error) {
		if googleIDToken == "" {
			return nil, &Error{Code: CodePopupClosed}
		}

		return s.provider.SignInWithGoogle(ctx, googleIDToken)
	})
}

// ResetPassword sends a reset email. The session state is unchanged.
func (s *Session) ResetPassword(ctx context.Context, email string) error {
	s.begin()
	err := s.provider.SendPasswordReset(ctx, strings.TrimSpace(email))

	return s.fail(err)
}

func (s *Session) SignOut(ctx context.Context) error {
	s.begin()
	if err := s.store.Delete(ctx, s.id); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.creds, s.state = nil, StateSignedOut
	s.mu.Unlock()

	return nil
}

// Token returns a valid ID token, refreshing it when it is about to expire.
// A signed-out session returns "" and no error.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.Restore(ctx)

	s.mu.Lock()
	c := s.creds
	s.mu.Unlock()
	if c == nil {
		return "", nil
	}
	if s.now().Add(refreshSkew).Before(c.ExpiresAt) {
		return c.IDToken, nil
	}

	fresh, err := s.provider.Refresh(ctx, c.RefreshToken)
	if err != nil {
		return "", s.fail(err)
	}

	next := *c
	next.IDToken, next.ExpiresAt = fresh.IDToken, fresh.ExpiresAt
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}
	if err := s.store.Save(ctx, s.id, &next, s.ttl); err != nil {
		return "", s.fail(err)
	}

	s.mu.Lock()
	if s.creds == c {
		s.creds = &next
	}
	s.mu.Unlock()

	return next.IDToken, nil
}

func (s *Session) signIn(ctx context.Context, call func() (*Credentials, error)) error {
	s.begin()
	s.mu.Lock()
	prev := s.creds
	s.state = StateAuthenticating
	s.mu.Unlock()

	c, err := call()
	if err == nil {
		err = s.store.Save(ctx, s.id, c, s.ttl)
	}
	if err != nil {
		// A failed attempt keeps an existing sign-in.
		s.mu.Lock()
		s.state = StateError
		if prev != nil {
			s.state = StateSignedIn
		}
		s.mu.Unlock()

		return s.fail(err)
	}

	s.mu.Lock()
	s.creds, s.state = c, StateSignedIn
	s.mu.Unlock()

	return nil
}

// begin marks the session settled (an explicit action supersedes a pending
// restore) and clears the last error.
func (s *Session) begin() {
	s.restore.Do(func() {})

	s.mu.Lock()
	if s.state == StateLoading || s.state == StateError {
		s.state = StateSignedOut
	}
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Session) fail(err error) error {
	if err == nil {
		return nil
	}

	s.mu.Lock()
	s.lastErr = Message(err)
	s.mu.Unlock()

	return err
}

// Manager creates and resumes sessions.
type Manager struct {
	Provider Provider
	Store    Store
	TTL      time.Duration
	Now      func() time.Time
}

func NewManager(p Provider, st Store, ttl time.Duration) *Manager {
	return &Manager{Provider: p, Store: st, TTL: ttl, Now: time.Now}
}

// New returns a fresh signed-out session with a new id.
func (m *Manager) New() *Session {
	s := m.session(uuid.NewString())
	s.restore.Do(func() {})
	s.state = StateSignedOut

	return s
}

// Resume returns the session for id, restored from the store. Malformed ids
// get a fresh session.
func (m *Manager) Resume(ctx context.Context, id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		return m.New()
	}
	s := m.session(id)
	s.Restore(ctx)

	return s
}

func (m *Manager) session(id string) *Session {
	now := m.Now
	if now == nil {
		now = time.Now
	}

	return &Session{id: id, provider: m.Provider, store: m.Store, ttl: m.TTL, now: now}
}
