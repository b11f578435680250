package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

// NewExporter installs a Prometheus-backed global meter provider and returns
// the exporter, whose ServeHTTP serves /metrics.
func NewExporter() (*prometheus.Exporter, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)

	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, err
	}
	global.SetMeterProvider(exporter.MeterProvider())

	return exporter, nil
}

// Metrics holds the instruments used across the service. The zero-config
// global provider is a no-op, so Metrics is safe to use in tests.
type Metrics struct {
	requests        metric.Int64Counter
	backendDuration metric.Float64ValueRecorder
	sinkFailures    metric.Int64Counter
	invalidations   metric.Int64Counter
}

func New(serviceName string) *Metrics {
	meter := global.Meter(serviceName)
	m := metric.Must(meter)

	return &Metrics{
		requests: m.NewInt64Counter(
			"http/server/completed_count",
			metric.WithDescription("Count of completed requests, by HTTP method, route and response status"),
		),
		backendDuration: m.NewFloat64ValueRecorder(
			"backend/request_duration_ms",
			metric.WithDescription("Latency of backend API calls in milliseconds"),
		),
		sinkFailures: m.NewInt64Counter(
			"analytics/sink_failures",
			metric.WithDescription("Analytics events a sink failed to accept"),
		),
		invalidations: m.NewInt64Counter(
			"cache/invalidated_entries",
			metric.WithDescription("Cache entries marked stale by tag invalidation"),
		),
	}
}

func (m *Metrics) BackendRequest(ctx context.Context, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	)
}

func (m *Metrics) SinkFailure(ctx context.Context, sink string) {
	if m == nil {
		return
	}
	m.sinkFailures.Add(ctx, 1, attribute.String("sink", sink))
}

func (m *Metrics) Invalidated(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(ctx, int64(n))
}

// Middleware counts completed requests by method, route pattern and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.Add(r.Context(), 1,
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(status)),
		)
	})
}
