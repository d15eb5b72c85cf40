// Package config loads the YAML configuration shared by all three nodes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/radio-telemetry/internal/history"
	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/mqtt"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/relay"
	"github.com/sweeney/radio-telemetry/internal/sensor"
	"github.com/sweeney/radio-telemetry/internal/snapshot"
)

// Role selects which sections are validated.
type Role string

const (
	RoleSensor Role = "sensor"
	RoleRelay  Role = "relay"
	RoleHost   Role = "host"
	RoleProbe  Role = "probe" // one-shot sensor read, no radio
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Sensor   sensor.Config  `yaml:"sensor"`
	Radio    radio.Config   `yaml:"radio"`
	Transmit TransmitConfig `yaml:"transmit"`
	Relay    RelayConfig    `yaml:"relay"`
	Host     HostConfig     `yaml:"host"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Archive  ArchiveConfig  `yaml:"archive"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type LogConfig struct {
	Env   string     `yaml:"env"`   // dev or prod
	Level string     `yaml:"level"` // debug, info, warn, error
	Value slog.Level `yaml:"-"`
}

type TransmitConfig struct {
	Period time.Duration `yaml:"period"`
}

type RelayConfig struct {
	Period         time.Duration `yaml:"period"`
	Mode           string        `yaml:"mode"`
	FragmentMaxAge time.Duration `yaml:"fragment_max_age"`
	Onward         radio.Config  `yaml:"onward"`
	MQTT           mqtt.Options  `yaml:"mqtt"`
}

type HostConfig struct {
	Link            radio.Config  `yaml:"link"`
	PollPeriod      time.Duration `yaml:"poll_period"`
	FragmentMaxAge  time.Duration `yaml:"fragment_max_age"`
	HistoryCapacity int           `yaml:"history_capacity"`
}

type SnapshotConfig struct {
	Dir       string        `yaml:"dir"`
	Interval  time.Duration `yaml:"interval"`
	Keep      int           `yaml:"keep"`
	ExportDir string        `yaml:"export_dir"` // on-demand exports; defaults to dir
}

type ArchiveConfig struct {
	Path string `yaml:"path"` // empty disables
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// Load reads path (if non-empty), applies env and command-line overrides,
// fills defaults, and validates the sections role needs.
func Load(path string, role Role, overrides ...func(*Config)) (*Config, error) {
	cfg := seeded()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.applyDefaults()
	if err := cfg.validate(role); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// seeded returns a Config whose E32 line offsets are -1 before the file is
// read, since 0 is a valid GPIO line.
func seeded() Config {
	off := radio.E32Config{M0: -1, M1: -1, AUX: -1}
	var cfg Config
	cfg.Radio.E32 = off
	cfg.Relay.Onward.E32 = off
	cfg.Host.Link.E32 = off
	return cfg
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		c.Log.Env = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Env == "" {
		c.Log.Env = "prod"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.Sensor.ApplyDefaults()
	c.Radio.ApplyDefaults(radio.BaudRadio)

	if c.Transmit.Period == 0 {
		c.Transmit.Period = time.Second
	}

	if c.Relay.Period == 0 {
		c.Relay.Period = time.Second
	}
	if c.Relay.Mode == "" {
		c.Relay.Mode = relay.ModeLog
	}
	if c.Relay.FragmentMaxAge == 0 {
		c.Relay.FragmentMaxAge = ingest.DefaultFragmentMaxAge
	}
	c.Relay.Onward.ApplyDefaults(radio.BaudHost)
	c.Relay.MQTT.ApplyDefaults()

	c.Host.Link.ApplyDefaults(radio.BaudHost)
	if c.Host.PollPeriod == 0 {
		c.Host.PollPeriod = time.Second
	}
	if c.Host.FragmentMaxAge == 0 {
		c.Host.FragmentMaxAge = ingest.DefaultFragmentMaxAge
	}
	if c.Host.HistoryCapacity == 0 {
		c.Host.HistoryCapacity = history.DefaultCapacity
	}

	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = "."
	}
	if c.Snapshot.ExportDir == "" {
		c.Snapshot.ExportDir = c.Snapshot.Dir
	}
	if c.Snapshot.Interval == 0 {
		c.Snapshot.Interval = snapshot.DefaultInterval
	}
	if c.Snapshot.Keep == 0 {
		c.Snapshot.Keep = snapshot.DefaultKeep
	}
}

func (c *Config) validate(role Role) error {
	level, err := parseLogLevel(c.Log.Level)
	if err != nil {
		return err
	}
	c.Log.Value = level
	if c.Log.Env != "dev" && c.Log.Env != "prod" {
		return fmt.Errorf("invalid log.env %q (allowed: dev, prod)", c.Log.Env)
	}

	switch role {
	case RoleProbe:
		if err := c.Sensor.Validate(); err != nil {
			return fmt.Errorf("sensor config: %w", err)
		}
	case RoleSensor:
		if err := c.Sensor.Validate(); err != nil {
			return fmt.Errorf("sensor config: %w", err)
		}
		if err := c.Radio.Validate(); err != nil {
			return fmt.Errorf("radio config: %w", err)
		}
		if c.Transmit.Period <= 0 {
			return errors.New("transmit.period must be positive")
		}
		if c.Sensor.ReadTimeout*2 >= c.Transmit.Period {
			return fmt.Errorf("sensor.read_timeout %v too long for transmit.period %v", c.Sensor.ReadTimeout, c.Transmit.Period)
		}
	case RoleRelay:
		if err := c.Radio.Validate(); err != nil {
			return fmt.Errorf("radio config: %w", err)
		}
		if c.Relay.Period <= 0 {
			return errors.New("relay.period must be positive")
		}
		if err := relay.ValidateMode(c.Relay.Mode); err != nil {
			return err
		}
		switch c.Relay.Mode {
		case relay.ModeSerial:
			if err := c.Relay.Onward.Validate(); err != nil {
				return fmt.Errorf("relay.onward config: %w", err)
			}
		case relay.ModeMQTT:
			if err := c.Relay.MQTT.Validate(); err != nil {
				return fmt.Errorf("relay.mqtt config: %w", err)
			}
		}
	case RoleHost:
		if err := c.Host.Link.Validate(); err != nil {
			return fmt.Errorf("host.link config: %w", err)
		}
		if c.Host.PollPeriod <= 0 {
			return errors.New("host.poll_period must be positive")
		}
		if c.Host.HistoryCapacity < 0 {
			return errors.New("host.history_capacity must not be negative")
		}
		if c.Snapshot.Interval < snapshot.MinInterval {
			return fmt.Errorf("snapshot.interval %v is shorter than %v", c.Snapshot.Interval, snapshot.MinInterval)
		}
		if c.Snapshot.Keep < 0 {
			return errors.New("snapshot.keep must not be negative")
		}
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
