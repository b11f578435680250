package analytics

import (
	"net/http"
	"sync"
	"time"
)

type Consent int8

const (
	ConsentUnknown Consent = iota
	ConsentGranted
	ConsentDenied
)

// ConsentStore persists a visitor's analytics consent.
type ConsentStore interface {
	Consent() Consent
	SetConsent(granted bool) error
}

// MemoryConsent keeps consent in process.
type MemoryConsent struct {
	mu sync.Mutex
	c  Consent
}

func (m *MemoryConsent) Consent() Consent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.c
}

func (m *MemoryConsent) SetConsent(granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.c = ConsentDenied
	if granted {
		m.c = ConsentGranted
	}

	return nil
}

const consentMaxAge = 365 * 24 * time.Hour

// CookieConsent reads consent off a request cookie and writes changes back
// to the response. The cookie holds "true" or "false".
type CookieConsent struct {
	Name   string
	Secure bool

	w http.ResponseWriter
	c Consent
}

func NewCookieConsent(w http.ResponseWriter, r *http.Request, name string, secure bool) *CookieConsent {
	cc := &CookieConsent{Name: name, Secure: secure, w: w}
	if ck, err := r.Cookie(name); err == nil {
		switch ck.Value {
		case "true":
			cc.c = ConsentGranted
		case "false":
			cc.c = ConsentDenied
		}
	}

	return cc
}

func (cc *CookieConsent) Consent() Consent { return cc.c }

func (cc *CookieConsent) SetConsent(granted bool) error {
	value := "false"
	cc.c = ConsentDenied
	if granted {
		value = "true"
		cc.c = ConsentGranted
	}

	http.SetCookie(cc.w, &http.Cookie{
		Name:     cc.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(consentMaxAge / time.Second),
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}
