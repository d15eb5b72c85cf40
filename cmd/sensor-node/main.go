// Command sensor-node reads the BME280 and SI7021 sensors once per period
// and transmits each complete reading over the radio link.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/radio-telemetry/internal/config"
	"github.com/sweeney/radio-telemetry/internal/logging"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/sensor"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
	"github.com/sweeney/radio-telemetry/internal/transmit"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const appName = "sensor-node"

func main() {
	configPath := flag.String("config", "", "YAML config file")
	device := flag.String("device", "", "Radio serial device (overrides config)")
	period := flag.Duration("period", 0, "Transmit period (overrides config)")
	printReading := flag.Bool("print-reading", false, "Read the sensors once, print the wire line and exit")

	flag.Parse()

	if err := run(*configPath, *device, *period, *printReading); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, device string, period time.Duration, printReading bool) error {
	role := config.RoleSensor
	if printReading {
		role = config.RoleProbe
	}
	cfg, err := config.Load(configPath, role, func(c *config.Config) {
		if device != "" {
			c.Radio.Device = device
		}
		if period > 0 {
			c.Transmit.Period = period
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log, version, appName)

	adapter, err := sensor.Open(cfg.Sensor)
	if err != nil {
		return fmt.Errorf("init sensors: %w", err)
	}
	defer adapter.Close()

	if printReading {
		r, err := adapter.Read(context.Background())
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		fmt.Print(string(telemetry.Encode(r)))
		return nil
	}

	link, err := radio.Open(cfg.Radio)
	if err != nil {
		return fmt.Errorf("open radio: %w", err)
	}
	defer link.Close()

	loop := transmit.New(adapter, link, logger)

	logger.Info("started",
		"device", cfg.Radio.Device,
		"baud", cfg.Radio.Baud,
		"period", cfg.Transmit.Period,
		"e32", cfg.Radio.E32.Enabled(),
	)

	ticker := time.NewTicker(cfg.Transmit.Period)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop, logger, ticker.C, sigCh)
}

// runLoop runs one transmit cycle per tick until a signal arrives.
// Cycles never overlap: a slow cycle delays the next tick.
func runLoop(loop *transmit.Loop, logger *slog.Logger, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			c := loop.Counts()
			logger.Info("shutting down",
				"signal", s.String(),
				"sent", c.Sent,
				"skipped", c.Skipped,
				"write_failed", c.WriteFailed,
			)
			return nil

		case <-tick:
			loop.Cycle(context.Background())
		}
	}
}
