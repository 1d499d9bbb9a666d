// Package telemetry implements the observability sink spec §5 calls out
// as the "metrics HTTP server (external collaborator, cooperative
// async)" background thread. Grounded on chidi150c-coinbase's
// metrics.go/main.go: a package-level prometheus registry, one metric
// per counted event, served over /metrics via promhttp.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements engine.Metrics against a dedicated
// registry (not the global default one, so multiple engines — e.g. in
// tests — never collide on metric registration).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	tickLatency       prometheus.Histogram
	gapDetected       prometheus.Counter
	gapSizeHistogram  prometheus.Histogram
	circuitBreakerHalt prometheus.Counter
	signalRejected    prometheus.Counter
	fillProcessed     prometheus.Counter
	killSwitchTripped *prometheus.CounterVec
	droppedFills      prometheus.Counter
}

// NewPrometheusMetrics constructs and registers every engine metric.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: reg,
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_tick_latency_seconds",
			Help:    "Wall-clock duration of one hot-loop tick.",
			Buckets: prometheus.ExponentialBuckets(1e-7, 2, 20), // 100ns .. ~52ms
		}),
		gapDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_gap_detected_total",
			Help: "Number of sequence gaps detected in the feed.",
		}),
		gapSizeHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_gap_size",
			Help:    "Distribution of detected gap sizes.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		circuitBreakerHalt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_circuit_breaker_halt_total",
			Help: "Number of ticks short-circuited by the flash-crash breaker.",
		}),
		signalRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_signal_rejected_total",
			Help: "Number of strategy signals rejected by pre-trade risk validation.",
		}),
		fillProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_fill_processed_total",
			Help: "Number of fills applied to position.",
		}),
		killSwitchTripped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_kill_switch_tripped_total",
			Help: "Number of times the kill switch was tripped to EmergencyStop, by reason.",
		}, []string{"reason"}),
		droppedFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_dropped_fills_total",
			Help: "Fills dropped by a full executor fill queue (data-integrity alarm).",
		}),
	}

	reg.MustRegister(
		m.tickLatency, m.gapDetected, m.gapSizeHistogram, m.circuitBreakerHalt,
		m.signalRejected, m.fillProcessed, m.killSwitchTripped, m.droppedFills,
	)
	return m
}

func (m *PrometheusMetrics) RecordTick(latency time.Duration) { m.tickLatency.Observe(latency.Seconds()) }
func (m *PrometheusMetrics) IncGapDetected(size uint64) {
	m.gapDetected.Inc()
	m.gapSizeHistogram.Observe(float64(size))
}
func (m *PrometheusMetrics) IncCircuitBreakerHalt()      { m.circuitBreakerHalt.Inc() }
func (m *PrometheusMetrics) IncSignalRejected()          { m.signalRejected.Inc() }
func (m *PrometheusMetrics) IncFillProcessed()           { m.fillProcessed.Inc() }
func (m *PrometheusMetrics) IncKillSwitchTripped(reason string) {
	m.killSwitchTripped.WithLabelValues(reason).Inc()
}
func (m *PrometheusMetrics) IncDroppedFills(count uint64) { m.droppedFills.Add(float64(count)) }

// Server exposes the registry over HTTP /metrics, the cooperative-async
// background collaborator of spec §5 (outside the hot thread entirely).
type Server struct {
	httpServer *http.Server
}

// NewServer binds a /metrics handler for m's registry at addr (e.g.
// ":9090"). It does not start listening until Start is called.
func NewServer(addr string, m *PrometheusMetrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Start blocks serving until the server is shut down; run it in a
// goroutine. Returns nil on a clean Shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
