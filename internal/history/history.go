// Package history keeps the most recent samples for plotting.
package history

import (
	"time"

	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// DefaultCapacity is the number of samples kept.
const DefaultCapacity = 100

// Point is one (timestamp, value) pair of a metric series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series holds the three metric series over the current window, oldest first.
type Series struct {
	Temperature []Point `json:"temperature"`
	Humidity    []Point `json:"humidity"`
	Pressure    []Point `json:"pressure"`
}

// Ring is a fixed-capacity FIFO of samples in arrival order.
// When full, each append overwrites the oldest sample.
// Not safe for concurrent use; the caller synchronizes.
type Ring struct {
	buf      []telemetry.Sample
	capacity int
	head     int // next write position
	count    int
}

// New creates a ring holding up to capacity samples.
// capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		buf:      make([]telemetry.Sample, capacity),
		capacity: capacity,
	}
}

// Append adds s, evicting the oldest sample when full.
func (r *Ring) Append(s telemetry.Sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// Samples returns a copy of the window, oldest first. The ring is unchanged.
func (r *Ring) Samples() []telemetry.Sample {
	if r.count == 0 {
		return nil
	}

	result := make([]telemetry.Sample, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}
	return result
}

// Latest returns the newest sample.
func (r *Ring) Latest() (telemetry.Sample, bool) {
	if r.count == 0 {
		return telemetry.Sample{}, false
	}
	return r.buf[(r.head-1+r.capacity)%r.capacity], true
}

// Series returns the per-metric (timestamp, value) sequences.
func (r *Ring) Series() Series {
	samples := r.Samples()
	s := Series{
		Temperature: make([]Point, len(samples)),
		Humidity:    make([]Point, len(samples)),
		Pressure:    make([]Point, len(samples)),
	}
	for i, smp := range samples {
		s.Temperature[i] = Point{smp.Timestamp, smp.Temperature}
		s.Humidity[i] = Point{smp.Timestamp, smp.Humidity}
		s.Pressure[i] = Point{smp.Timestamp, smp.Pressure}
	}
	return s
}

// Bounds returns the earliest and latest timestamps in the window.
// Timestamps normally arrive in order, but a clock step can break that,
// so both ends are scanned.
func (r *Ring) Bounds() (lo, hi time.Time, ok bool) {
	if r.count == 0 {
		return time.Time{}, time.Time{}, false
	}
	start := (r.head - r.count + r.capacity) % r.capacity
	lo = r.buf[start].Timestamp
	hi = lo
	for i := 1; i < r.count; i++ {
		ts := r.buf[(start+i)%r.capacity].Timestamp
		if ts.Before(lo) {
			lo = ts
		}
		if ts.After(hi) {
			hi = ts
		}
	}
	return lo, hi, true
}

// Len returns the number of samples held.
func (r *Ring) Len() int {
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return r.capacity
}
