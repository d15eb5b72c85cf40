// Package ingest implements the host's ingestion pipeline: drain the radio
// link, decode lines, and update the rolling history and the durable table.
package ingest

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/radio-telemetry/internal/history"
	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/table"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// DefaultFragmentMaxAge is how long a partial line may wait for its terminator.
const DefaultFragmentMaxAge = 2 * time.Second

// Options configures a Pipeline.
type Options struct {
	HistoryCapacity int
	FragmentMaxAge  time.Duration
}

// Counts tracks ingestion activity since startup.
type Counts struct {
	Ingested   int
	Malformed  int
	PollFailed int
}

// Pipeline owns the history and table. Poll runs on the ingestion goroutine;
// the read accessors may be called from any goroutine.
type Pipeline struct {
	link    radio.Poller
	lines   *telemetry.LineBuffer
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Prom

	// mu guards hist, tbl and counts together so a reader never sees a
	// sample in one and not the other.
	mu     sync.RWMutex
	hist   *history.Ring
	tbl    *table.Table
	counts Counts
}

// New creates a pipeline reading from link. sink and m may be nil.
func New(link radio.Poller, opts Options, sink Sink, logger *slog.Logger, m *metrics.Prom) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		link:    link,
		lines:   telemetry.NewLineBuffer(opts.FragmentMaxAge),
		sink:    sink,
		logger:  logger,
		metrics: m,
		hist:    history.New(opts.HistoryCapacity),
		tbl:     table.New(),
	}
}

// Poll drains the link once and ingests every well-formed line, stamping
// each with now. Malformed lines are logged and dropped. It returns the
// number of samples ingested.
func (p *Pipeline) Poll(now time.Time) int {
	data, err := p.link.Poll()
	if err != nil {
		p.mu.Lock()
		p.counts.PollFailed++
		p.mu.Unlock()
		p.metrics.Inc(metrics.PollErrors, 1)
		p.logger.Warn("radio poll failed", "error", err)
	}

	var lines []telemetry.Line
	if frag := p.lines.Expire(now); frag != nil {
		lines = append(lines, telemetry.Line{Text: frag})
	}
	lines = append(lines, p.lines.Feed(data, now)...)

	n := 0
	for _, line := range lines {
		r, dropped, err := telemetry.DecodeLine(line)
		if dropped != nil {
			p.malformed(dropped, errors.New("truncated line"))
		}
		if err != nil {
			p.malformed(line.Text, err)
			continue
		}
		p.metrics.Inc(metrics.LinesDecoded, 1)
		p.ingest(telemetry.Stamp(r, now))
		n++
	}
	return n
}

func (p *Pipeline) malformed(line []byte, err error) {
	p.mu.Lock()
	p.counts.Malformed++
	p.mu.Unlock()
	p.metrics.Inc(metrics.LinesMalformed, 1)
	p.logger.Warn("dropping malformed line", "line", string(line), "error", err)
}

func (p *Pipeline) ingest(s telemetry.Sample) {
	p.mu.Lock()
	p.hist.Append(s)
	row := p.tbl.Insert(s)
	p.counts.Ingested++
	series := p.hist.Series()
	lo, hi, _ := p.hist.Bounds()
	histLen, rows := p.hist.Len(), p.tbl.Len()
	p.mu.Unlock()

	p.metrics.Inc(metrics.SamplesIngested, 1)
	p.metrics.Set(metrics.HistoryLength, float64(histLen))
	p.metrics.Set(metrics.TableRows, float64(rows))
	p.metrics.Set(metrics.LastSampleTS, float64(s.Timestamp.Unix()))
	p.logger.Debug("sample ingested",
		"temperature", s.Temperature,
		"humidity", s.Humidity,
		"pressure", s.Pressure,
	)

	p.sink.OnSampleAppended(s)
	p.sink.OnRowInserted(row)
	p.sink.OnHistoryUpdated(series, Bounds{Start: lo, End: hi})
}

// Rows returns a copy of the table in display order (newest first).
func (p *Pipeline) Rows() []table.Row {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tbl.Rows()
}

// History returns a copy of the history window, oldest first.
func (p *Pipeline) History() []telemetry.Sample {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hist.Samples()
}

// Series returns the per-metric series and time-axis bounds.
// ok is false while the history is empty.
func (p *Pipeline) Series() (series history.Series, bounds Bounds, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lo, hi, ok := p.hist.Bounds()
	return p.hist.Series(), Bounds{Start: lo, End: hi}, ok
}

// Latest returns the newest sample.
func (p *Pipeline) Latest() (telemetry.Sample, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hist.Latest()
}

// Counts returns ingestion totals.
func (p *Pipeline) Counts() Counts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts
}
