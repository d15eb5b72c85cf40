package sensor

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultSI7021Addr is the fixed I²C address of the SI7021.
const DefaultSI7021Addr = 0x40

// cmdMeasureRHNoHold starts a humidity conversion without clock stretching.
const cmdMeasureRHNoHold = 0xF5

// SI7021 reads relative humidity from a Silicon Labs SI7021.
type SI7021 struct {
	dev   *i2c.Dev
	delay time.Duration
	sleep func(time.Duration)
}

// NewSI7021 creates a humidity reader. delay is the conversion wait between
// the measure command and the result read (max 12ms at 12-bit resolution).
func NewSI7021(bus i2c.Bus, addr uint16, delay time.Duration) *SI7021 {
	return &SI7021{
		dev:   &i2c.Dev{Bus: bus, Addr: addr},
		delay: delay,
		sleep: time.Sleep,
	}
}

// ReadHumidity triggers a conversion and returns %RH.
func (s *SI7021) ReadHumidity() (float64, error) {
	if err := s.dev.Tx([]byte{cmdMeasureRHNoHold}, nil); err != nil {
		return 0, fmt.Errorf("measure command: %w", classifyI2CError(err))
	}

	s.sleep(s.delay)

	var buf [3]byte
	if err := s.dev.Tx(nil, buf[:]); err != nil {
		return 0, fmt.Errorf("read result: %w", classifyI2CError(err))
	}

	if crc8(buf[:2]) != buf[2] {
		return 0, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, buf[2], crc8(buf[:2]))
	}

	return humidityFromRaw(uint16(buf[0])<<8 | uint16(buf[1])), nil
}

// Close is a no-op; the bus is owned by the caller.
func (s *SI7021) Close() error {
	return nil
}

func humidityFromRaw(raw uint16) float64 {
	return float64(raw)*125/65536 - 6
}

// crc8 is the SI7021 checksum: polynomial x^8+x^5+x^4+1 (0x31), init 0x00.
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
