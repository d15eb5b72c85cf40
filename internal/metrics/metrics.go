// Package metrics exposes Prometheus collectors for the relay and host.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter names.
const (
	LinesDecoded     = "telemetry_lines_decoded_total"
	LinesMalformed   = "telemetry_lines_malformed_total"
	PollErrors       = "telemetry_poll_errors_total"
	SamplesIngested  = "telemetry_samples_ingested_total"
	Forwarded        = "telemetry_forwarded_total"
	ForwardFailures  = "telemetry_forward_failures_total"
	SnapshotsWritten = "telemetry_snapshots_written_total"
	SnapshotFailures = "telemetry_snapshot_failures_total"
	SnapshotsPruned  = "telemetry_snapshots_pruned_total"
	ArchiveFailures  = "telemetry_archive_failures_total"
)

// Gauge names.
const (
	HistoryLength = "telemetry_history_length"
	TableRows     = "telemetry_table_rows"
	LastSampleTS  = "telemetry_last_sample_timestamp_seconds"
)

// Histogram names.
const (
	SnapshotSeconds = "telemetry_snapshot_write_seconds"
)

// Prom holds registered collectors. A nil *Prom is valid and records nothing.
type Prom struct {
	reg      *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// New creates and registers all collectors on a private registry.
func New() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		reg:      reg,
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
		histos:   make(map[string]prometheus.Observer),
	}

	for name, help := range map[string]string{
		LinesDecoded:     "Wire lines decoded successfully.",
		LinesMalformed:   "Wire lines dropped as malformed.",
		PollErrors:       "Radio link polls that failed.",
		SamplesIngested:  "Samples appended to history and table.",
		Forwarded:        "Readings forwarded by the relay.",
		ForwardFailures:  "Readings the relay failed to forward.",
		SnapshotsWritten: "Snapshot files written.",
		SnapshotFailures: "Snapshot writes or prunes that failed.",
		SnapshotsPruned:  "Snapshot files deleted by retention.",
		ArchiveFailures:  "Samples the archive failed to store.",
	} {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		reg.MustRegister(c)
		p.counters[name] = c
	}

	for name, help := range map[string]string{
		HistoryLength: "Samples in the rolling history.",
		TableRows:     "Rows in the durable table.",
		LastSampleTS:  "Receipt time of the newest sample (unix seconds).",
	} {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		reg.MustRegister(g)
		p.gauges[name] = g
	}

	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    SnapshotSeconds,
		Help:    "Time to serialize and write one snapshot file.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	reg.MustRegister(h)
	p.histos[SnapshotSeconds] = h

	return p
}

// Inc adds v to the named counter.
func (p *Prom) Inc(name string, v float64) {
	if p == nil {
		return
	}
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

// Set sets the named gauge.
func (p *Prom) Set(name string, v float64) {
	if p == nil {
		return
	}
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// Observe records seconds on the named histogram.
func (p *Prom) Observe(name string, seconds float64) {
	if p == nil {
		return
	}
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
