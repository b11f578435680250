package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hoppafit/website/internal/analytics"
	"github.com/hoppafit/website/internal/auth"
	"github.com/hoppafit/website/internal/backend"
	"github.com/hoppafit/website/internal/blog"
	"github.com/hoppafit/website/internal/cachetag"
	"github.com/hoppafit/website/internal/cdn"
	"github.com/hoppafit/website/internal/config"
	"github.com/hoppafit/website/internal/forum"
	"github.com/hoppafit/website/internal/identity"
	"github.com/hoppafit/website/internal/revalidate"
	"github.com/hoppafit/website/internal/server"
	"github.com/hoppafit/website/internal/sitemap"
	"github.com/hoppafit/website/internal/telemetry"
)

// App owns the long-lived pieces behind the router.
type App struct {
	sugarLogger *zap.SugaredLogger
	config      config.Config

	router     chi.Router
	pages      *cachetag.Store
	dispatcher *analytics.Dispatcher
	redis      *identity.RedisStore
}

func newApp(cfg config.Config, sugar *zap.SugaredLogger, metrics *telemetry.Metrics) (*App, error) {
	a := &App{sugarLogger: sugar, config: cfg}

	be := backend.New(cfg.Backend.URL, cfg.Backend.Timeout, metrics)
	a.pages = cachetag.New(
		cachetag.WithTTL(cfg.Cache.TTL),
		cachetag.WithFetchTimeout(cfg.Backend.Timeout),
		cachetag.WithObserver(metrics.Invalidated),
	)

	guard := auth.NewGuard(nil)
	if cfg.Auth.VerifyTokens {
		guard = auth.NewGuard(auth.NewFirebaseVerifier(cfg.Auth.ProjectID, cfg.Auth.CertsURL))
	}

	a.dispatcher = analytics.NewDispatcher(analytics.Options{
		Enabled:  cfg.Analytics.Enabled,
		Platform: cfg.Analytics.Platform,
		Timeout:  cfg.Analytics.Timeout,
		Logger:   sugar.With("component", "analytics"),
		Observer: metrics,
	}, a.sinks()...)
	events := analytics.NewAPI(a.dispatcher, cfg.Analytics.ConsentCookie, cfg.Sessions.SecureCookie)

	purgers := revalidate.Purgers{revalidate.LocalPurger{Pages: a.pages}}
	if cfg.CDN.SiteID != "" {
		purgers = append(purgers, cdn.NewNetlify(cfg.CDN.Endpoint, cfg.CDN.SiteID, cfg.CDN.Token))
	}

	a.router = server.New(server.Deps{
		Logger:     sugar,
		Metrics:    metrics,
		Guard:      guard,
		Forum:      forum.New(be),
		Blog:       blog.New(be, a.pages),
		Analytics:  events,
		Identity:   a.identity(events),
		Revalidate: revalidate.New(cfg.Revalidate.Secret, purgers),
		Sitemap:    sitemap.New(be, cfg.SiteURL),
	})

	return a, nil
}

// sinks returns the analytics providers that have credentials.
func (a *App) sinks() []analytics.Sink {
	cfg := a.config.Analytics
	client := &http.Client{Timeout: cfg.Timeout}

	var sinks []analytics.Sink
	if cfg.Amplitude.APIKey != "" {
		sinks = append(sinks, &analytics.AmplitudeSink{
			APIKey:  cfg.Amplitude.APIKey,
			BaseURL: cfg.Amplitude.Endpoint,
			HTTP:    client,
		})
	}
	if cfg.Firebase.MeasurementID != "" && cfg.Firebase.APISecret != "" {
		sinks = append(sinks, &analytics.FirebaseSink{
			MeasurementID: cfg.Firebase.MeasurementID,
			APISecret:     cfg.Firebase.APISecret,
			Endpoint:      cfg.Firebase.Endpoint,
			HTTP:          client,
		})
	}
	if len(sinks) == 0 {
		a.sugarLogger.Warnw("no analytics sinks configured")
	}

	return sinks
}

// identity is nil without a Firebase API key.
func (a *App) identity(events identity.Events) *identity.API {
	cfg := a.config
	if cfg.Auth.FirebaseAPIKey == "" {
		a.sugarLogger.Warnw("FIREBASE_API_KEY not set, auth endpoints disabled")

		return nil
	}

	var store identity.Store = identity.NewMemoryStore()
	if cfg.Sessions.RedisAddr != "" {
		a.redis = identity.NewRedisStore(cfg.Sessions.RedisAddr, cfg.Sessions.RedisPassword, cfg.Sessions.RedisDB)
		store = a.redis
	}

	m := identity.NewManager(identity.NewFirebaseProvider(cfg.Auth.FirebaseAPIKey, cfg.SiteURL), store, cfg.Sessions.TTL)

	return identity.NewAPI(m, cfg.Sessions.CookieName, cfg.Sessions.SecureCookie, events)
}

// Check verifies external dependencies that are reachable at startup.
func (a *App) Check(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}

	return a.redis.Ping(ctx)
}

// sweep drops expired page cache entries until ctx is done.
func (a *App) sweep(ctx context.Context) {
	every := a.config.Cache.TTL
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.pages.Sweep(); n > 0 {
				a.sugarLogger.Debugw("swept page cache", "entries", n)
			}
		}
	}
}

// Close waits for in-flight analytics sends and closes the session store.
func (a *App) Close() {
	a.dispatcher.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.sugarLogger.Errorw("close redis", "error", err)
		}
	}
}
