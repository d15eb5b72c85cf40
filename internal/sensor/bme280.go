package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// BME280 reads temperature and pressure from a Bosch BME280.
type BME280 struct {
	dev *bmxx80.Dev
}

// NewBME280 opens a BME280 at addr on bus.
func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80.NewI2C 0x%02X: %w", addr, err)
	}
	return &BME280{dev: dev}, nil
}

// ReadClimate returns temperature in °C and pressure in hPa.
func (b *BME280) ReadClimate() (float64, float64, error) {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return 0, 0, classifyI2CError(err)
	}

	temperature := env.Temperature.Celsius()

	// env.Pressure is stored as nano pascal.
	pressure := float64(env.Pressure) / float64(100*physic.Pascal)

	return temperature, pressure, nil
}

// Close halts the device.
func (b *BME280) Close() error {
	return b.dev.Halt()
}
