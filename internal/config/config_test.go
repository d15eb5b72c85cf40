package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/relay"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadHostAppliesDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENV", "")
	path := writeConfig(t, `
host:
  link:
    device: /dev/ttyUSB0
snapshot:
  dir: /var/lib/telemetry
`)

	cfg, err := Load(path, RoleHost)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Host.Link.Baud != radio.BaudHost {
		t.Fatalf("expected host baud %d, got %d", radio.BaudHost, cfg.Host.Link.Baud)
	}
	if cfg.Host.PollPeriod != time.Second {
		t.Fatalf("expected poll period 1s, got %s", cfg.Host.PollPeriod)
	}
	if cfg.Host.HistoryCapacity != 100 {
		t.Fatalf("expected history capacity 100, got %d", cfg.Host.HistoryCapacity)
	}
	if cfg.Snapshot.Interval != 10*time.Second {
		t.Fatalf("expected snapshot interval 10s, got %s", cfg.Snapshot.Interval)
	}
	if cfg.Snapshot.Keep != 9 {
		t.Fatalf("expected keep 9, got %d", cfg.Snapshot.Keep)
	}
	if cfg.Snapshot.ExportDir != "/var/lib/telemetry" {
		t.Fatalf("expected export dir to default to snapshot dir, got %q", cfg.Snapshot.ExportDir)
	}
	if cfg.Host.Link.E32.Enabled() {
		t.Fatal("expected E32 disabled when not configured")
	}
	if cfg.Log.Value != slog.LevelInfo || cfg.Log.Env != "prod" {
		t.Fatalf("expected info/prod logging, got %v/%s", cfg.Log.Value, cfg.Log.Env)
	}
	if cfg.Archive.Path != "" || cfg.HTTP.Addr != "" {
		t.Fatal("archive and http must be disabled by default")
	}
}

func TestLoadSensorNode(t *testing.T) {
	path := writeConfig(t, `
radio:
  device: /dev/ttyS0
  e32:
    m0: 0
    m1: 1
    aux: 2
sensor:
  climate_bus: "1"
  humidity_bus: "1"
transmit:
  period: 2s
`)

	cfg, err := Load(path, RoleSensor)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Radio.Baud != radio.BaudRadio {
		t.Fatalf("expected radio baud %d, got %d", radio.BaudRadio, cfg.Radio.Baud)
	}
	if cfg.Radio.E32.M0 != 0 || cfg.Radio.E32.M1 != 1 || cfg.Radio.E32.AUX != 2 {
		t.Fatalf("e32 lines: %+v", cfg.Radio.E32)
	}
	if !cfg.Radio.E32.Enabled() {
		t.Fatal("expected E32 enabled")
	}
	if cfg.Transmit.Period != 2*time.Second {
		t.Fatalf("expected period 2s, got %s", cfg.Transmit.Period)
	}
	if cfg.Sensor.ClimateAddr != 0x76 {
		t.Fatalf("expected climate addr 0x76, got %#x", cfg.Sensor.ClimateAddr)
	}
}

func TestLoadRelayModes(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"log default", "radio:\n  device: /dev/ttyS0\n", ""},
		{"serial ok", "radio:\n  device: /dev/ttyS0\nrelay:\n  mode: serial\n  onward:\n    device: /dev/ttyACM0\n", ""},
		{"serial missing device", "radio:\n  device: /dev/ttyS0\nrelay:\n  mode: serial\n", "relay.onward"},
		{"mqtt ok", "radio:\n  device: /dev/ttyS0\nrelay:\n  mode: mqtt\n  mqtt:\n    broker: tcp://localhost:1883\n", ""},
		{"mqtt missing broker", "radio:\n  device: /dev/ttyS0\nrelay:\n  mode: mqtt\n", "relay.mqtt"},
		{"bad mode", "radio:\n  device: /dev/ttyS0\nrelay:\n  mode: carrier-pigeon\n", "unknown relay forward mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml), RoleRelay)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cfg.Relay.Onward.Baud != radio.BaudHost {
					t.Errorf("onward baud: got %d", cfg.Relay.Onward.Baud)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRelayDefaultMode(t *testing.T) {
	cfg, err := Load(writeConfig(t, "radio:\n  device: /dev/ttyS0\n"), RoleRelay)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Relay.Mode != relay.ModeLog {
		t.Errorf("mode: got %s, want %s", cfg.Relay.Mode, relay.ModeLog)
	}
	if cfg.Relay.MQTT.Topic == "" {
		t.Error("expected default mqtt topic")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		role Role
		yaml string
	}{
		{"host without device", RoleHost, "snapshot:\n  dir: /tmp\n"},
		{"sensor without device", RoleSensor, "transmit:\n  period: 1s\n"},
		{"sensor read timeout too long", RoleSensor, "radio:\n  device: /dev/ttyS0\nsensor:\n  read_timeout: 800ms\n"},
		{"bad level", RoleHost, "log:\n  level: loud\nhost:\n  link:\n    device: /dev/ttyUSB0\n"},
		{"bad env", RoleHost, "log:\n  env: staging\nhost:\n  link:\n    device: /dev/ttyUSB0\n"},
		{"unknown role", Role("gateway"), "host:\n  link:\n    device: /dev/ttyUSB0\n"},
		{"sub-second snapshot interval", RoleHost, "host:\n  link:\n    device: /dev/ttyUSB0\nsnapshot:\n  interval: 500ms\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml), tt.role); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_ENV", "dev")
	path := writeConfig(t, "log:\n  level: error\n  env: prod\nhost:\n  link:\n    device: /dev/ttyUSB0\n")

	cfg, err := Load(path, RoleHost)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Log.Value != slog.LevelDebug {
		t.Errorf("level: got %v, want debug", cfg.Log.Value)
	}
	if cfg.Log.Env != "dev" {
		t.Errorf("env: got %s, want dev", cfg.Log.Env)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), RoleHost); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	if _, err := Load("", RoleHost); err == nil {
		t.Fatal("expected validation error: no device without a file")
	}
	cfg, err := Load("", RoleProbe)
	if err != nil {
		t.Fatalf("probe needs no radio: %v", err)
	}
	if cfg.Sensor.ReadTimeout != 300*time.Millisecond {
		t.Errorf("read timeout: got %s", cfg.Sensor.ReadTimeout)
	}
}

func TestOverridesApplyBeforeValidation(t *testing.T) {
	cfg, err := Load("", RoleHost, func(c *Config) {
		c.Host.Link.Device = "/dev/ttyACM0"
		c.HTTP.Addr = ":8080"
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Host.Link.Device != "/dev/ttyACM0" || cfg.HTTP.Addr != ":8080" {
		t.Errorf("overrides lost: %+v %+v", cfg.Host.Link, cfg.HTTP)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{" INFO ", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
