//
// hoppa website service
// =====================
// Same-origin API for the hoppa.fit site: forum and blog proxy, auth
// sessions, analytics, on-demand revalidation and sitemaps.
//
// Pass -routes to print the generated route docs: `go run . -routes`
//
// Boot the server:
// ----------------
// $ API_URL=http://localhost:8080 REVALIDATE_SECRET=s3cret go run .
//
// Client requests:
// ----------------
// $ curl http://localhost:3333/ping
// pong
//
// $ curl 'http://localhost:3333/api/forum/topics?sort=hot'
// [{"id":"t1","title":"Leg day","votes":4, ...}]
//
// $ curl -X PATCH -H 'Authorization: Bearer $TOKEN' -d '{"value":1}' http://localhost:3333/api/forum/topics/t1
// {"id":"t1","votes":5, ...}
//
// $ curl 'http://localhost:3333/api/blog/articles?page=2'
// {"items":[...],"pagination":{"page":2,"limit":12, ...}}
//
// $ curl -X POST -d '{"paths":["/blog"],"secret":"s3cret"}' http://localhost:3333/api/revalidate
// {"revalidated":["/blog"],"message":"Purged cache for 1 path(s)"}
//
// $ curl http://localhost:3333/server-sitemap.xml
// <?xml version="1.0" encoding="UTF-8"?><urlset ...>
//
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/docgen"

	"github.com/hoppafit/website/internal/config"
	"github.com/hoppafit/website/internal/logging"
	"github.com/hoppafit/website/internal/telemetry"
)

const ServiceName = "hoppa"

const shutdownTimeout = 10 * time.Second

// nolint
func main() {
	var (
		routes     = flag.Bool("routes", getEnvBool("HOPPA_ROUTES", false), "Generate router documentation")
		addr       = flag.String("addr", getEnv("HOPPA_ADDR", ""), "application address, overrides config")
		diagAddr   = flag.String("diag_addr", getEnv("HOPPA_DIAG_ADDR", ""), "diag address, overrides config")
		configPath = flag.String("config", "", "YAML config file (default $HOPPA_CONFIG)")
	)

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *diagAddr != "" {
		cfg.DiagAddr = *diagAddr
	}

	sugar, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger %v", err)
	}
	defer sugar.Sync() // flushes buffer, if any

	exporter, err := telemetry.NewExporter()
	if err != nil {
		sugar.Panicf("failed to initialize prometheus exporter %v", err)
	}

	// Route docs need no backend, so -routes skips validation.
	if !*routes {
		if err := cfg.Validate(); err != nil {
			sugar.Fatalw("invalid configuration", "error", err)
		}
	}

	a, err := newApp(cfg, sugar, telemetry.New(ServiceName))
	if err != nil {
		sugar.Fatalw("failed to start", "error", err)
	}

	if *routes {
		// nolint
		fmt.Println(docgen.MarkdownRoutesDoc(a.router, docgen.MarkdownOpts{
			ProjectPath: "github.com/hoppafit/website",
			Intro:       "Generated route docs for the hoppa website service.",
		}))
		a.Close()

		return
	}

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", exporter.ServeHTTP)

	srv := &http.Server{Addr: cfg.Addr, Handler: a.router}
	diag := &http.Server{Addr: cfg.DiagAddr, Handler: diagRouter}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Check(ctx); err != nil {
		sugar.Fatalw("session store unreachable", "error", err)
	}

	go a.sweep(ctx)

	go func() {
		if err := diag.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw(err.Error())
		}
	}()

	go func() {
		sugar.Infow("listening", "addr", cfg.Addr, "diag_addr", cfg.DiagAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw(err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown", "error", err)
	}
	if err := diag.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("diag shutdown", "error", err)
	}
	a.Close()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}
