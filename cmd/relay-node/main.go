// Command relay-node receives wire lines from the sensing node's radio and
// forwards each reading over a second serial link, to MQTT, or to the log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/radio-telemetry/internal/config"
	"github.com/sweeney/radio-telemetry/internal/logging"
	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/mqtt"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/relay"
)

var version = "dev"

const appName = "relay-node"

// connectTimeout bounds the initial broker connection.
const connectTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file")
	mode := flag.String("mode", "", "Forward mode: serial, mqtt or log (overrides config)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "Metrics address, e.g. :9100 (overrides config, empty disables)")

	flag.Parse()

	if err := run(*configPath, *mode, *broker, *httpAddr); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, mode, broker, httpAddr string) error {
	cfg, err := config.Load(configPath, config.RoleRelay, func(c *config.Config) {
		if mode != "" {
			c.Relay.Mode = mode
		}
		if broker != "" {
			c.Relay.MQTT.Broker = broker
		}
		if httpAddr != "" {
			c.HTTP.Addr = httpAddr
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log, version, appName)
	prom := metrics.New()

	link, err := radio.Open(cfg.Radio)
	if err != nil {
		return fmt.Errorf("open radio: %w", err)
	}
	defer link.Close()

	var (
		fwd relay.Forwarder
		pub mqtt.Publisher
	)
	switch cfg.Relay.Mode {
	case relay.ModeSerial:
		onward, err := radio.Open(cfg.Relay.Onward)
		if err != nil {
			return fmt.Errorf("open onward link: %w", err)
		}
		defer onward.Close()
		fwd = relay.NewSerialForwarder(onward)

	case relay.ModeMQTT:
		p := mqtt.NewRealPublisher(cfg.Relay.MQTT, logger)
		defer p.Close()
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := p.Connect(ctx)
		cancel()
		if err != nil {
			// Readings are dropped until the client's auto-reconnect succeeds.
			logger.Warn("mqtt connect failed, continuing", "broker", cfg.Relay.MQTT.Broker, "error", err)
		}
		pub = p
		fwd = relay.NewMQTTForwarder(p)

		if err := pub.PublishSystem(mqtt.SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
			logger.Warn("failed to publish startup event", "error", err)
		} else {
			logger.Info("published startup event")
		}

	default:
		fwd = relay.NewLogForwarder(logger)
	}

	if cfg.HTTP.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("metrics server listening", "addr", cfg.HTTP.Addr)
	}

	listener := relay.NewListener(link, fwd, cfg.Relay.FragmentMaxAge, logger, prom)

	logger.Info("started",
		"device", cfg.Radio.Device,
		"baud", cfg.Radio.Baud,
		"mode", cfg.Relay.Mode,
		"period", cfg.Relay.Period,
	)

	ticker := time.NewTicker(cfg.Relay.Period)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(listener, pub, logger, time.Now, ticker.C, sigCh)
}

// runLoop polls the link once per tick until a signal arrives. pub is nil
// unless the relay forwards to MQTT, in which case it also receives the
// SHUTDOWN event.
func runLoop(listener *relay.Listener, pub mqtt.Publisher, logger *slog.Logger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			c := listener.Counts()
			logger.Info("shutting down",
				"signal", s.String(),
				"forwarded", c.Forwarded,
				"malformed", c.Malformed,
				"forward_failed", c.ForwardFailed,
				"poll_failed", c.PollFailed,
			)
			if pub != nil {
				event := mqtt.SystemEvent{
					Timestamp: now(),
					Event:     "SHUTDOWN",
					Reason:    signalName(s),
					Retained:  true,
				}
				if err := pub.PublishSystem(event); err != nil {
					logger.Warn("failed to publish shutdown event", "error", err)
				} else {
					logger.Info("published shutdown event")
				}
			}
			return nil

		case <-tick:
			listener.Cycle(now())
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
