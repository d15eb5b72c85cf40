package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromCounters(t *testing.T) {
	p := New()

	p.Inc(LinesDecoded, 3)
	p.Inc(LinesMalformed, 1)
	p.Inc("unknown_counter", 10)

	if got := testutil.ToFloat64(p.counters[LinesDecoded]); got != 3 {
		t.Fatalf("expected decoded counter 3, got %f", got)
	}
	if got := testutil.ToFloat64(p.counters[LinesMalformed]); got != 1 {
		t.Fatalf("expected malformed counter 1, got %f", got)
	}
}

func TestPromGaugesAndHistogram(t *testing.T) {
	p := New()

	p.Set(HistoryLength, 100)
	if got := testutil.ToFloat64(p.gauges[HistoryLength]); got != 100 {
		t.Fatalf("expected history gauge 100, got %f", got)
	}

	p.Observe(SnapshotSeconds, 0.02)
	h := p.histos[SnapshotSeconds].(prometheus.Collector)
	if n := testutil.CollectAndCount(h); n != 1 {
		t.Fatalf("expected histogram to collect 1 metric, got %d", n)
	}
}

func TestNilPromIsNoop(t *testing.T) {
	var p *Prom
	p.Inc(LinesDecoded, 1)
	p.Set(HistoryLength, 1)
	p.Observe(SnapshotSeconds, 1)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler: got %d, want 404", rec.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := New()
	p.Inc(SamplesIngested, 2)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "telemetry_samples_ingested_total 2") {
		t.Errorf("metrics output missing ingested counter:\n%s", body)
	}
}

func TestSeparateInstancesDoNotCollide(t *testing.T) {
	// Private registries: creating two must not panic on duplicate registration.
	a := New()
	b := New()
	a.Inc(Forwarded, 1)
	if got := testutil.ToFloat64(b.counters[Forwarded]); got != 0 {
		t.Errorf("instances share state: got %f", got)
	}
}
