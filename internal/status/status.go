// Package status provides a thread-safe status tracker for the telemetry host.
// It is fed by the ingestion pipeline and the snapshot loop, and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/radio-telemetry/internal/history"
	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/table"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// Config contains host configuration for display.
type Config struct {
	Device             string
	Baud               int
	PollMs             int64
	SnapshotDir        string
	SnapshotIntervalMs int64
	SnapshotKeep       int
	ArchivePath        string
	HTTPAddr           string
}

// Notice is an operator-facing persistence failure.
type Notice struct {
	Time    time.Time
	Message string
}

// Snapshot is a point-in-time view of host state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Latest       telemetry.Sample
	HasLatest    bool
	HistoryLen   int
	Bounds       ingest.Bounds
	TableRows    int
	Counts       ingest.Counts
	LastSaved    time.Time
	LastSavePath string
	Notice       *Notice
	StartTime    time.Time
	Now          time.Time
	Config       Config
}

// Uptime returns the duration since the host started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable host state behind an RWMutex.
// It implements ingest.Sink.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// OnSampleAppended records the latest reading.
func (t *Tracker) OnSampleAppended(s telemetry.Sample) {
	t.mu.Lock()
	t.snap.Latest = s
	t.snap.HasLatest = true
	t.mu.Unlock()
}

// OnHistoryUpdated records the window size and time-axis bounds.
func (t *Tracker) OnHistoryUpdated(series history.Series, bounds ingest.Bounds) {
	t.mu.Lock()
	t.snap.HistoryLen = len(series.Temperature)
	t.snap.Bounds = bounds
	t.mu.Unlock()
}

// OnRowInserted counts table rows.
func (t *Tracker) OnRowInserted(table.Row) {
	t.mu.Lock()
	t.snap.TableRows++
	t.mu.Unlock()
}

// Update sets ingestion counts. Called from runLoop on every poll.
func (t *Tracker) Update(counts ingest.Counts) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSaved records a successful snapshot write.
func (t *Tracker) SetSaved(path string, at time.Time) {
	t.mu.Lock()
	t.snap.LastSaved = at
	t.snap.LastSavePath = path
	t.mu.Unlock()
}

// SetNotice records a persistence failure for the operator. It stays
// visible until ClearNotice.
func (t *Tracker) SetNotice(err error, at time.Time) {
	t.mu.Lock()
	t.snap.Notice = &Notice{Time: at, Message: err.Error()}
	t.mu.Unlock()
}

// ClearNotice removes the operator notice.
func (t *Tracker) ClearNotice() {
	t.mu.Lock()
	t.snap.Notice = nil
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the host state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Notice != nil {
		n := *s.Notice
		s.Notice = &n
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
