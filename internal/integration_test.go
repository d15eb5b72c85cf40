package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/radio-telemetry/internal/archive"
	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/mqtt"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/relay"
	"github.com/sweeney/radio-telemetry/internal/sensor"
	"github.com/sweeney/radio-telemetry/internal/snapshot"
	"github.com/sweeney/radio-telemetry/internal/status"
	"github.com/sweeney/radio-telemetry/internal/transmit"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// transmitted runs the sensing node for len(climate) cycles and returns
// everything it wrote to the radio.
func transmitted(t *testing.T, climate []sensor.ClimateResult, humidity []sensor.HumidityResult) []byte {
	t.Helper()
	link := radio.NewFakeLink()
	adapter := sensor.NewAdapter(
		&sensor.FakeClimateBus{Results: climate},
		&sensor.FakeHumidityBus{Results: humidity},
		time.Second,
	)
	loop := transmit.New(adapter, link, discard())
	for range climate {
		loop.Cycle(context.Background())
	}
	return bytes.Join(link.Written, nil)
}

// chunk splits b the way a radio delivers it: arbitrary boundaries,
// including mid-line.
func chunk(b []byte, size int) []string {
	var out []string
	for len(b) > 0 {
		n := size
		if n > len(b) {
			n = len(b)
		}
		out = append(out, string(b[:n]))
		b = b[n:]
	}
	return out
}

func TestIntegrationSensorToSnapshot(t *testing.T) {
	air := transmitted(t,
		[]sensor.ClimateResult{
			{Temperature: 21.25, Pressure: 1013},
			{Temperature: 21.5, Pressure: 1012},
			{Temperature: 21.75, Pressure: 1012},
		},
		[]sensor.HumidityResult{
			{Humidity: 40},
			{Err: sensor.ErrChecksum}, // second cycle skipped
			{Humidity: 41.5},
		},
	)

	// Relay: radio in, serial out. Poll every 100ms so split lines rejoin
	// well inside the fragment age.
	relayIn := radio.NewFakeLink(chunk(air, 7)...)
	onward := radio.NewFakeLink()
	listener := relay.NewListener(relayIn, relay.NewSerialForwarder(onward), 2*time.Second, discard(), nil)
	for i := 0; relayIn.Remaining() > 0; i++ {
		listener.Cycle(start.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	if c := listener.Counts(); c.Forwarded != 2 || c.Malformed != 0 {
		t.Fatalf("relay counts: %+v", c)
	}

	// Host: serial in, history, table, archive, snapshot.
	db, err := archive.Open(":memory:")
	if err != nil {
		t.Fatalf("archive open: %v", err)
	}
	defer db.Close()
	arc, err := archive.New(db, discard(), nil)
	if err != nil {
		t.Fatalf("archive init: %v", err)
	}
	tracker := status.NewTracker(start, status.Config{})

	hostIn := radio.NewFakeLink()
	hostIn.Chunks = onward.Written
	pipeline := ingest.New(hostIn, ingest.Options{FragmentMaxAge: 2 * time.Second}, ingest.MultiSink{tracker, arc}, discard(), nil)
	for i := 0; hostIn.Remaining() > 0; i++ {
		pipeline.Poll(start.Add(time.Duration(i) * time.Second))
	}

	rows := pipeline.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Temperature != "21.75" || rows[1].Temperature != "21.25" {
		t.Errorf("rows not newest first: %+v", rows)
	}

	n, err := arc.Count(context.Background())
	if err != nil {
		t.Fatalf("archive count: %v", err)
	}
	if n != 2 {
		t.Errorf("archive count: got %d, want 2", n)
	}

	snap := tracker.Snapshot()
	if !snap.HasLatest || snap.Latest.Temperature != 21.75 || snap.HistoryLen != 2 {
		t.Errorf("tracker: latest=%+v len=%d", snap.Latest, snap.HistoryLen)
	}

	dir := t.TempDir()
	store, err := snapshot.NewStore(dir, snapshot.DefaultKeep, discard(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	path, err := store.AutoSave(rows)
	if err != nil {
		t.Fatalf("AutoSave: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	want := "Timestamp\tTemperature (°C)\tHumidity (%)\tPressure (hPa)\n" +
		"2026-01-01 12:00:01\t21.75\t41.5\t1012\n" +
		"2026-01-01 12:00:00\t21.25\t40\t1013\n"
	if string(data) != want {
		t.Errorf("snapshot:\n%q\nwant:\n%q", data, want)
	}

	export := filepath.Join(dir, "export.txt")
	if err := store.Export(export, rows); err != nil {
		t.Fatalf("Export: %v", err)
	}
	exported, _ := os.ReadFile(export)
	if !bytes.Equal(exported, data) {
		t.Errorf("export differs from snapshot")
	}
}

func TestIntegrationRelayToMQTT(t *testing.T) {
	air := transmitted(t,
		[]sensor.ClimateResult{{Temperature: 19.5, Pressure: 998}},
		[]sensor.HumidityResult{{Humidity: 55.5}},
	)

	pub := mqtt.NewFakePublisher()
	listener := relay.NewListener(radio.NewFakeLink(string(air)), relay.NewMQTTForwarder(pub), 2*time.Second, discard(), nil)
	listener.Cycle(start)

	if len(pub.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(pub.Payloads))
	}
	var p mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[0], &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := mqtt.TelemetryPayload{
		Timestamp:   "2026-01-01T12:00:00Z",
		Temperature: 19.5,
		Humidity:    55.5,
		Pressure:    998,
	}
	if p.Telemetry != want {
		t.Errorf("payload: got %+v, want %+v", p.Telemetry, want)
	}
}

func TestIntegrationStaleFragmentDropped(t *testing.T) {
	// A line cut off mid-transmission must not be glued to the next one.
	hostIn := radio.NewFakeLink("21.50,10", "", "", "21.75,1012,41.5\r\n")
	pipeline := ingest.New(hostIn, ingest.Options{FragmentMaxAge: 2 * time.Second}, nil, discard(), nil)
	for i := 0; hostIn.Remaining() > 0; i++ {
		pipeline.Poll(start.Add(time.Duration(i) * time.Second))
	}

	c := pipeline.Counts()
	if c.Ingested != 1 || c.Malformed != 1 {
		t.Errorf("counts: %+v", c)
	}
	latest, ok := pipeline.Latest()
	if !ok || latest.Temperature != 21.75 {
		t.Errorf("latest: %+v ok=%v", latest, ok)
	}
}
