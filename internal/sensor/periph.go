package sensor

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Config describes the sensing node's buses.
type Config struct {
	ClimateBus      string        `yaml:"climate_bus"`      // i2creg name, "" = first available
	ClimateAddr     uint16        `yaml:"climate_addr"`     // BME280, 0x76 or 0x77
	HumidityBus     string        `yaml:"humidity_bus"`     // i2creg name
	HumidityAddr    uint16        `yaml:"humidity_addr"`    // SI7021, 0x40
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // per sub-read
	ConversionDelay time.Duration `yaml:"conversion_delay"` // SI7021 measure → read
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.ClimateAddr == 0 {
		c.ClimateAddr = 0x76
	}
	if c.HumidityAddr == 0 {
		c.HumidityAddr = DefaultSI7021Addr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 300 * time.Millisecond
	}
	if c.ConversionDelay == 0 {
		c.ConversionDelay = 50 * time.Millisecond
	}
}

// Validate checks that sub-reads stay bounded.
func (c *Config) Validate() error {
	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	if c.ConversionDelay >= c.ReadTimeout {
		return fmt.Errorf("conversion_delay %v must be shorter than read_timeout %v", c.ConversionDelay, c.ReadTimeout)
	}
	return nil
}

// Open initializes the host drivers and both buses.
func Open(cfg Config) (*Adapter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}

	climateBus, err := i2creg.Open(cfg.ClimateBus)
	if err != nil {
		return nil, fmt.Errorf("open climate bus %q: %w", cfg.ClimateBus, err)
	}

	bme, err := NewBME280(climateBus, cfg.ClimateAddr)
	if err != nil {
		climateBus.Close()
		return nil, err
	}

	humidityBus, err := i2creg.Open(cfg.HumidityBus)
	if err != nil {
		bme.Close()
		climateBus.Close()
		return nil, fmt.Errorf("open humidity bus %q: %w", cfg.HumidityBus, err)
	}

	climate := &ownedClimate{ClimateBus: bme, bus: climateBus}
	humidity := &ownedHumidity{HumidityBus: NewSI7021(humidityBus, cfg.HumidityAddr, cfg.ConversionDelay), bus: humidityBus}

	return NewAdapter(climate, humidity, cfg.ReadTimeout), nil
}

// ownedClimate closes the underlying bus along with the device.
type ownedClimate struct {
	ClimateBus
	bus i2c.BusCloser
}

func (o *ownedClimate) Close() error {
	return errors.Join(o.ClimateBus.Close(), o.bus.Close())
}

type ownedHumidity struct {
	HumidityBus
	bus i2c.BusCloser
}

func (o *ownedHumidity) Close() error {
	return errors.Join(o.HumidityBus.Close(), o.bus.Close())
}
