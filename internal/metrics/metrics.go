// Package metrics exposes Prometheus counters for store operations and hit
// tests, plus a gauge of the zones currently loaded.
//
// A Recorder satisfies both store.Observer and session.Observer, so one
// value is handed to both constructors in main.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/leakzone-mcp/internal/store"
)

// Result labels.
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
	ResultHit         = "hit"
	ResultMiss        = "miss"
)

// Recorder owns a private registry so tests and multiple servers never
// collide on the global one.
type Recorder struct {
	registry *prometheus.Registry
	storeOps *prometheus.CounterVec
	hits     *prometheus.CounterVec
	zones    prometheus.Gauge
}

// New registers the leakzone collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leakzone_store_operations_total",
			Help: "Zone store operations by operation and result.",
		}, []string{"op", "result"}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leakzone_hit_tests_total",
			Help: "Point hit tests by result.",
		}, []string{"result"}),
		zones: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leakzone_zones",
			Help: "Zones in the current registry snapshot.",
		}),
	}
	r.registry.MustRegister(r.storeOps, r.hits, r.zones)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveStore counts one store operation.
func (r *Recorder) ObserveStore(op string, err error) {
	r.storeOps.WithLabelValues(op, storeResult(err)).Inc()
}

// ObserveHit counts one hit test.
func (r *Recorder) ObserveHit(found bool) {
	result := ResultMiss
	if found {
		result = ResultHit
	}
	r.hits.WithLabelValues(result).Inc()
}

// ObserveZones sets the zone gauge.
func (r *Recorder) ObserveZones(n int) {
	r.zones.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

func storeResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, store.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, store.ErrUnavailable):
		return ResultUnavailable
	default:
		return ResultError
	}
}
