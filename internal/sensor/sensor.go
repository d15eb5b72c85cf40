// Package sensor reads the sensing node's two I²C buses and combines them
// into a single reading. The real buses use periph.io; the fakes allow
// testing without hardware.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// Bus names used in errors and logs.
const (
	BusClimate  = "bme280"
	BusHumidity = "si7021"
)

// Sub-read failure kinds.
var (
	ErrBusTimeout = errors.New("bus timeout")
	ErrChecksum   = errors.New("checksum mismatch")
	ErrNoAck      = errors.New("no acknowledge")
)

// ClimateBus reads temperature (°C) and pressure (hPa).
type ClimateBus interface {
	ReadClimate() (temperature, pressure float64, err error)
	Close() error
}

// HumidityBus reads relative humidity (%RH).
type HumidityBus interface {
	ReadHumidity() (float64, error)
	Close() error
}

// BusError is a failed sub-read on one bus.
type BusError struct {
	Bus string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s: %v", e.Bus, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// IncompleteError reports which sub-reads failed in a cycle.
type IncompleteError struct {
	Failures []*BusError
}

func (e *IncompleteError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "incomplete reading: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual bus failures to errors.Is and errors.As.
func (e *IncompleteError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Failed reports whether the named bus failed.
func (e *IncompleteError) Failed(bus string) bool {
	for _, f := range e.Failures {
		if f.Bus == bus {
			return true
		}
	}
	return false
}

// Buses returns the names of the failed buses.
func (e *IncompleteError) Buses() []string {
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Bus
	}
	return out
}

// Adapter combines the climate and humidity buses. It does not retry.
type Adapter struct {
	climate  ClimateBus
	humidity HumidityBus
	timeout  time.Duration

	climateBusy  atomic.Bool
	humidityBusy atomic.Bool
}

// NewAdapter creates an adapter whose sub-reads each give up after timeout.
func NewAdapter(climate ClimateBus, humidity HumidityBus, timeout time.Duration) *Adapter {
	return &Adapter{
		climate:  climate,
		humidity: humidity,
		timeout:  timeout,
	}
}

// Read performs both sub-reads. A failure on one bus does not prevent the
// other from being read. The reading is returned only when both succeed;
// otherwise the error is an *IncompleteError naming the failed buses.
func (a *Adapter) Read(ctx context.Context) (telemetry.Reading, error) {
	var failures []*BusError

	type climate struct{ t, p float64 }
	c, err := bounded(ctx, a.timeout, &a.climateBusy, func() (climate, error) {
		t, p, err := a.climate.ReadClimate()
		return climate{t, p}, err
	})
	if err != nil {
		failures = append(failures, &BusError{Bus: BusClimate, Err: err})
	}

	h, err := bounded(ctx, a.timeout, &a.humidityBusy, a.humidity.ReadHumidity)
	if err != nil {
		failures = append(failures, &BusError{Bus: BusHumidity, Err: err})
	}

	if len(failures) > 0 {
		return telemetry.Reading{}, &IncompleteError{Failures: failures}
	}

	return telemetry.Reading{
		Temperature: c.t,
		Pressure:    c.p,
		Humidity:    h,
	}, nil
}

// Close releases both buses.
func (a *Adapter) Close() error {
	var errs []error
	if err := a.climate.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", BusClimate, err))
	}
	if err := a.humidity.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", BusHumidity, err))
	}
	return errors.Join(errs...)
}

// bounded runs fn with a deadline. A read that overruns is abandoned and the
// bus is reported busy (ErrBusTimeout) until it finally returns.
func bounded[T any](ctx context.Context, timeout time.Duration, busy *atomic.Bool, fn func() (T, error)) (T, error) {
	var zero T
	if !busy.CompareAndSwap(false, true) {
		return zero, fmt.Errorf("%w: previous read still in progress", ErrBusTimeout)
	}

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		// Clear before sending so the next cycle never sees a stale busy flag.
		busy.Store(false)
		ch <- result{v, err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case r := <-ch:
		return r.v, r.err
	case <-timer:
		return zero, ErrBusTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
