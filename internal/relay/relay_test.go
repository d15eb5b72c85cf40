package relay

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/radio-telemetry/internal/mqtt"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingForwarder struct {
	samples []telemetry.Sample
	err     error
}

func (f *recordingForwarder) Forward(s telemetry.Sample) error {
	if f.err != nil {
		return f.err
	}
	f.samples = append(f.samples, s)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestListenerForwardsWellFormedLine(t *testing.T) {
	link := radio.NewFakeLink("23.50,1012,45.2\r\n")
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 2*time.Second, discardLogger(), nil)

	if n := l.Cycle(t0); n != 1 {
		t.Fatalf("expected 1 forwarded, got %d", n)
	}
	got := fwd.samples[0]
	if got.Temperature != 23.5 || got.Pressure != 1012 || got.Humidity != 45.2 {
		t.Errorf("unexpected sample: %+v", got)
	}
	if !got.Timestamp.Equal(t0) {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, t0)
	}
}

func TestListenerDropsMalformedAndContinues(t *testing.T) {
	link := radio.NewFakeLink("garbage\r\n21.00,1000,50\r\n")
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 0, discardLogger(), nil)

	if n := l.Cycle(t0); n != 1 {
		t.Fatalf("expected 1 forwarded, got %d", n)
	}
	c := l.Counts()
	if c.Malformed != 1 || c.Forwarded != 1 {
		t.Errorf("counts: %+v", c)
	}
}

func TestListenerNoDataIsNoop(t *testing.T) {
	link := radio.NewFakeLink()
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 0, discardLogger(), nil)

	for i := 0; i < 3; i++ {
		if n := l.Cycle(t0.Add(time.Duration(i) * time.Second)); n != 0 {
			t.Fatalf("cycle %d: expected 0, got %d", i, n)
		}
	}
	if len(fwd.samples) != 0 {
		t.Errorf("expected nothing forwarded, got %d", len(fwd.samples))
	}
}

func TestListenerReassemblesSplitLine(t *testing.T) {
	link := radio.NewFakeLink("23.50,10", "12,45.2\r\n")
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 2*time.Second, discardLogger(), nil)

	if n := l.Cycle(t0); n != 0 {
		t.Fatalf("first cycle: expected 0, got %d", n)
	}
	if n := l.Cycle(t0.Add(time.Second)); n != 1 {
		t.Fatalf("second cycle: expected 1, got %d", n)
	}
	if fwd.samples[0].Pressure != 1012 {
		t.Errorf("pressure: got %v", fwd.samples[0].Pressure)
	}
}

func TestListenerExpiredFragmentDropped(t *testing.T) {
	link := radio.NewFakeLink("23.5,", "", "22.00,1010,40\r\n")
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 2*time.Second, discardLogger(), nil)

	l.Cycle(t0)
	l.Cycle(t0.Add(time.Second))
	n := l.Cycle(t0.Add(3 * time.Second))

	if n != 1 {
		t.Fatalf("expected 1 forwarded, got %d", n)
	}
	if l.Counts().Malformed != 1 {
		t.Errorf("expected stale fragment counted malformed, got %+v", l.Counts())
	}
	if fwd.samples[0].Temperature != 22 {
		t.Errorf("unexpected sample: %+v", fwd.samples[0])
	}
}

func TestListenerTruncatedLineThenValidLineNextCycle(t *testing.T) {
	link := radio.NewFakeLink("23.5,", "22.00,1010,40\r\n")
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 2*time.Second, discardLogger(), nil)

	l.Cycle(t0)
	n := l.Cycle(t0.Add(time.Second))

	if n != 1 {
		t.Fatalf("expected 1 forwarded, got %d", n)
	}
	if c := l.Counts(); c.Malformed != 1 || c.Forwarded != 1 {
		t.Errorf("counts: %+v", c)
	}
	if s := fwd.samples[0]; s.Temperature != 22 || s.Pressure != 1010 || s.Humidity != 40 {
		t.Errorf("unexpected sample: %+v", s)
	}
}

func TestListenerPollErrorDoesNotStop(t *testing.T) {
	link := radio.NewFakeLink("21.00,1000,50\r\n")
	link.PollError = errors.New("device unplugged")
	fwd := &recordingForwarder{}
	l := NewListener(link, fwd, 0, discardLogger(), nil)

	if n := l.Cycle(t0); n != 0 {
		t.Fatalf("expected 0 on poll error, got %d", n)
	}
	if l.Counts().PollFailed != 1 {
		t.Errorf("expected poll failure counted, got %+v", l.Counts())
	}

	link.PollError = nil
	if n := l.Cycle(t0.Add(time.Second)); n != 1 {
		t.Fatalf("expected recovery, got %d", n)
	}
}

func TestListenerForwardFailureCounted(t *testing.T) {
	link := radio.NewFakeLink("21.00,1000,50\r\n")
	fwd := &recordingForwarder{err: errors.New("onward link down")}
	l := NewListener(link, fwd, 0, discardLogger(), nil)

	if n := l.Cycle(t0); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if l.Counts().ForwardFailed != 1 {
		t.Errorf("counts: %+v", l.Counts())
	}
}

func TestSerialForwarderReencodes(t *testing.T) {
	onward := radio.NewFakeLink()
	f := NewSerialForwarder(onward)

	s := telemetry.Stamp(telemetry.Reading{Temperature: 23.5, Pressure: 1012, Humidity: 45.2}, t0)
	if err := f.Forward(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(onward.Written) != 1 || string(onward.Written[0]) != "23.50,1012,45.2\r\n" {
		t.Errorf("written: %q", onward.Written)
	}
}

func TestMQTTForwarderPublishes(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	f := NewMQTTForwarder(pub)

	s := telemetry.Stamp(telemetry.Reading{Temperature: 20, Pressure: 990, Humidity: 60}, t0)
	if err := f.Forward(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.Samples) != 1 || pub.Samples[0] != s {
		t.Errorf("published: %+v", pub.Samples)
	}

	pub.PublishError = errors.New("broker down")
	if err := f.Forward(s); err == nil {
		t.Error("expected publish error to surface")
	}
}

func TestLogForwarderLogs(t *testing.T) {
	var buf bytes.Buffer
	f := NewLogForwarder(slog.New(slog.NewTextHandler(&buf, nil)))

	s := telemetry.Stamp(telemetry.Reading{Temperature: 20, Pressure: 990, Humidity: 60}, t0)
	if err := f.Forward(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "pressure=990") {
		t.Errorf("log output: %s", buf.String())
	}
}

func TestValidateMode(t *testing.T) {
	for _, mode := range []string{ModeSerial, ModeMQTT, ModeLog} {
		if err := ValidateMode(mode); err != nil {
			t.Errorf("%s: unexpected error %v", mode, err)
		}
	}
	for _, mode := range []string{"", "udp"} {
		if err := ValidateMode(mode); err == nil {
			t.Errorf("%q: expected error", mode)
		}
	}
}
