package ingest

import (
	"time"

	"github.com/sweeney/radio-telemetry/internal/history"
	"github.com/sweeney/radio-telemetry/internal/table"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// Bounds is the visible time axis: earliest and latest timestamp in the
// current history window.
type Bounds struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Sink receives display updates. Calls arrive from the ingestion goroutine,
// one at a time, after the pipeline state has been updated.
type Sink interface {
	OnSampleAppended(s telemetry.Sample)
	OnHistoryUpdated(series history.Series, bounds Bounds)
	OnRowInserted(row table.Row)
}

// MultiSink fans every update out to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnSampleAppended(s telemetry.Sample) {
	for _, sink := range m {
		sink.OnSampleAppended(s)
	}
}

func (m MultiSink) OnHistoryUpdated(series history.Series, bounds Bounds) {
	for _, sink := range m {
		sink.OnHistoryUpdated(series, bounds)
	}
}

func (m MultiSink) OnRowInserted(row table.Row) {
	for _, sink := range m {
		sink.OnRowInserted(row)
	}
}

// NopSink ignores all updates. Embed it to implement only some callbacks.
type NopSink struct{}

func (NopSink) OnSampleAppended(telemetry.Sample)       {}
func (NopSink) OnHistoryUpdated(history.Series, Bounds) {}
func (NopSink) OnRowInserted(table.Row)                 {}
