package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestPrometheusMetricsExposedOverHTTP(t *testing.T) {
	t.Parallel()
	m := NewPrometheusMetrics()
	m.RecordTick(500 * time.Nanosecond)
	m.IncGapDetected(3)
	m.IncCircuitBreakerHalt()
	m.IncSignalRejected()
	m.IncFillProcessed()
	m.IncKillSwitchTripped("drawdown_limit_breached")
	m.IncDroppedFills(2)

	srv := httptest.NewServer(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)

	for _, want := range []string{
		"engine_tick_latency_seconds",
		"engine_gap_detected_total 1",
		"engine_circuit_breaker_halt_total 1",
		"engine_signal_rejected_total 1",
		"engine_fill_processed_total 1",
		`engine_kill_switch_tripped_total{reason="drawdown_limit_breached"} 1`,
		"engine_dropped_fills_total 2",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected metrics output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	t.Parallel()
	m := NewPrometheusMetrics()
	s := NewServer("127.0.0.1:0", m)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Start returned error after shutdown: %v", err)
	}
}
