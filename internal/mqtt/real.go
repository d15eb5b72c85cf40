package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Topic       string `yaml:"topic"`
	SystemTopic string `yaml:"system_topic"`
}

// ApplyDefaults fills unset fields.
func (o *Options) ApplyDefaults() {
	if o.ClientID == "" {
		o.ClientID = "relay-node"
	}
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.SystemTopic == "" {
		o.SystemTopic = DefaultSystemTopic
	}
}

// Validate reports configuration errors.
func (o Options) Validate() error {
	if o.Broker == "" {
		return errors.New("mqtt broker is required")
	}
	return nil
}

// ErrNotConnected is returned when publishing while the broker is unreachable.
// The relay drops the reading; there is no replay buffer.
var ErrNotConnected = errors.New("mqtt client not connected")

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	opts   Options
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
}

// NewRealPublisher creates a publisher for the configured broker.
// Call Connect before publishing.
func NewRealPublisher(o Options, logger *slog.Logger) *RealPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &RealPublisher{opts: o, logger: logger}

	lwt, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetWill(o.SystemTopic, string(lwt), 1, true)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", o.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = paho.NewClient(opts)
	return p
}

// Connect waits for the initial broker connection, respecting ctx.
func (p *RealPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Publish sends a relayed sample to the broker.
func (p *RealPublisher) Publish(s telemetry.Sample) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	payload, err := FormatPayload(s)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(p.opts.Topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	token := p.client.Publish(p.opts.SystemTopic, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.RLock()
	c := p.connected
	p.mu.RUnlock()
	return c && p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	p.setConnected(false)
	return nil
}

func (p *RealPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
