// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// DefaultTopic is the MQTT topic for relayed readings.
const DefaultTopic = "telemetry/relay/readings"

// DefaultSystemTopic is the MQTT topic for relay lifecycle events.
const DefaultSystemTopic = "telemetry/relay/system"

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends one relayed sample to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(s telemetry.Sample) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a relay lifecycle event (STARTUP, SHUTDOWN, OFFLINE).
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string // shutdown only, e.g. "SIGTERM"
	Retained  bool
}

// Payload is the JSON message for one relayed reading.
type Payload struct {
	Telemetry TelemetryPayload `json:"telemetry"`
}

// TelemetryPayload carries the decoded values and the relay's receipt time.
type TelemetryPayload struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature_c"`
	Humidity    float64 `json:"humidity_pct"`
	Pressure    float64 `json:"pressure_hpa"`
}

// FormatPayload creates the JSON payload for a sample.
func FormatPayload(s telemetry.Sample) ([]byte, error) {
	payload := Payload{
		Telemetry: TelemetryPayload{
			Timestamp:   s.Timestamp.UTC().Format(time.RFC3339),
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
			Pressure:    s.Pressure,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the JSON message for a lifecycle event.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
