// Package observability holds the Prometheus metrics exported by the server.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chargenow_mcp"

// Outcome label values shared by the upstream and tool metrics.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics holds the counters and histograms for upstream calls and tool invocations.
type Metrics struct {
	// labels: service={geocode,chargenow}, operation, outcome={success,empty,error}
	UpstreamRequests *prometheus.CounterVec
	// labels: service, operation
	UpstreamDuration *prometheus.HistogramVec
	// labels: outcome={success,empty,error}
	ToolInvocations *prometheus.CounterVec
	// labels: outcome={success,empty,error}
	ReverseGeocodes *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates all metrics and registers them with a dedicated registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.registry.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.ToolInvocations,
		m.ReverseGeocodes,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by service, operation and outcome.",
		}, []string{"service", "operation", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service", "operation"}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "find_available_chargepoints invocations by outcome.",
		}, []string{"outcome"}),
		ReverseGeocodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_reverse_geocodes_total",
			Help:      "Per-pool reverse geocoding results during pool search enrichment.",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
