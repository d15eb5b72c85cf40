// Package relay implements the intermediate node: receive wire lines from
// the radio link, decode them, and hand each reading to a forwarder.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/mqtt"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// Forward modes.
const (
	ModeSerial = "serial"
	ModeMQTT   = "mqtt"
	ModeLog    = "log"
)

// Forwarder delivers one decoded reading onward.
type Forwarder interface {
	Forward(s telemetry.Sample) error
}

// Counts tracks listener activity since startup.
type Counts struct {
	Forwarded     int
	Malformed     int
	ForwardFailed int
	PollFailed    int
}

// Listener polls the radio link once per Cycle.
// Not safe for concurrent use; the run loop calls Cycle from one goroutine.
type Listener struct {
	link    radio.Poller
	lines   *telemetry.LineBuffer
	fwd     Forwarder
	logger  *slog.Logger
	metrics *metrics.Prom
	counts  Counts
}

// NewListener creates a listener. m may be nil.
func NewListener(link radio.Poller, fwd Forwarder, fragmentMaxAge time.Duration, logger *slog.Logger, m *metrics.Prom) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		link:    link,
		lines:   telemetry.NewLineBuffer(fragmentMaxAge),
		fwd:     fwd,
		logger:  logger,
		metrics: m,
	}
}

// Cycle drains whatever the link has, forwards every well-formed line and
// drops the rest. It returns the number of readings forwarded.
func (l *Listener) Cycle(now time.Time) int {
	data, err := l.link.Poll()
	if err != nil {
		l.counts.PollFailed++
		l.metrics.Inc(metrics.PollErrors, 1)
		l.logger.Warn("radio poll failed", "error", err)
	}

	var lines []telemetry.Line
	if frag := l.lines.Expire(now); frag != nil {
		lines = append(lines, telemetry.Line{Text: frag})
	}
	lines = append(lines, l.lines.Feed(data, now)...)

	sent := 0
	for _, line := range lines {
		r, dropped, err := telemetry.DecodeLine(line)
		if dropped != nil {
			l.malformed(dropped, errors.New("truncated line"))
		}
		if err != nil {
			l.malformed(line.Text, err)
			continue
		}
		l.metrics.Inc(metrics.LinesDecoded, 1)

		if err := l.fwd.Forward(telemetry.Stamp(r, now)); err != nil {
			l.counts.ForwardFailed++
			l.metrics.Inc(metrics.ForwardFailures, 1)
			l.logger.Warn("forward failed", "error", err)
			continue
		}
		l.counts.Forwarded++
		l.metrics.Inc(metrics.Forwarded, 1)
		sent++
	}
	return sent
}

func (l *Listener) malformed(line []byte, err error) {
	l.counts.Malformed++
	l.metrics.Inc(metrics.LinesMalformed, 1)
	l.logger.Warn("dropping malformed line", "line", string(line), "error", err)
}

// Counts returns activity totals.
func (l *Listener) Counts() Counts {
	return l.counts
}

// SerialForwarder re-encodes readings onto an onward serial link.
type SerialForwarder struct {
	w         radio.Writer
	precision telemetry.Precision
}

// NewSerialForwarder writes wire lines to w.
func NewSerialForwarder(w radio.Writer) *SerialForwarder {
	return &SerialForwarder{w: w, precision: telemetry.DefaultPrecision}
}

// Forward writes one wire line.
func (f *SerialForwarder) Forward(s telemetry.Sample) error {
	return f.w.Write(f.precision.Encode(s.Reading()))
}

// MQTTForwarder publishes readings as JSON.
type MQTTForwarder struct {
	pub mqtt.Publisher
}

// NewMQTTForwarder forwards through pub.
func NewMQTTForwarder(pub mqtt.Publisher) *MQTTForwarder {
	return &MQTTForwarder{pub: pub}
}

// Forward publishes one sample.
func (f *MQTTForwarder) Forward(s telemetry.Sample) error {
	return f.pub.Publish(s)
}

// LogForwarder only logs each reading.
type LogForwarder struct {
	logger *slog.Logger
}

// NewLogForwarder logs readings to logger.
func NewLogForwarder(logger *slog.Logger) *LogForwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogForwarder{logger: logger}
}

// Forward logs the reading. It never fails.
func (f *LogForwarder) Forward(s telemetry.Sample) error {
	f.logger.Info("reading received",
		"temperature", s.Temperature,
		"humidity", s.Humidity,
		"pressure", s.Pressure,
	)
	return nil
}

// ValidateMode reports whether mode is a known forward mode.
func ValidateMode(mode string) error {
	switch mode {
	case ModeSerial, ModeMQTT, ModeLog:
		return nil
	case "":
		return errors.New("relay forward mode is required")
	default:
		return fmt.Errorf("unknown relay forward mode %q (want %s, %s or %s)", mode, ModeSerial, ModeMQTT, ModeLog)
	}
}
