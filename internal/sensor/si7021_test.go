package sensor

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestCRC8(t *testing.T) {
	if got := crc8([]byte{0x00}); got != 0x00 {
		t.Errorf("crc8(00): got 0x%02X, want 0x00", got)
	}
	if got := crc8([]byte{0x01}); got != 0x31 {
		t.Errorf("crc8(01): got 0x%02X, want 0x31", got)
	}
}

func TestHumidityFromRaw(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{0x0000, -6},
		{0x6666, 43.9992675},
		{0xFFFF, 118.998},
	}
	for _, tt := range tests {
		if got := humidityFromRaw(tt.raw); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("humidityFromRaw(0x%04X): got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func newPlaybackSI7021(result []byte) (*SI7021, *i2ctest.Playback) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultSI7021Addr, W: []byte{cmdMeasureRHNoHold}},
			{Addr: DefaultSI7021Addr, R: result},
		},
		DontPanic: true,
	}
	s := NewSI7021(bus, DefaultSI7021Addr, 25*time.Millisecond)
	return s, bus
}

func TestSI7021ReadHumidity(t *testing.T) {
	s, bus := newPlaybackSI7021([]byte{0x66, 0x66, crc8([]byte{0x66, 0x66})})
	var slept time.Duration
	s.sleep = func(d time.Duration) { slept = d }

	h, err := s.ReadHumidity()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(h-43.9992675) > 0.001 {
		t.Errorf("humidity: got %v", h)
	}
	if slept != 25*time.Millisecond {
		t.Errorf("conversion delay: got %v, want 25ms", slept)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("not all bus operations were played back: %v", err)
	}
}

func TestSI7021ChecksumMismatch(t *testing.T) {
	good := crc8([]byte{0x66, 0x66})
	s, _ := newPlaybackSI7021([]byte{0x66, 0x66, good ^ 0xFF})
	s.sleep = func(time.Duration) {}

	_, err := s.ReadHumidity()
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestSI7021BusError(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	s := NewSI7021(bus, DefaultSI7021Addr, 0)
	s.sleep = func(time.Duration) {}

	if _, err := s.ReadHumidity(); err == nil {
		t.Fatal("expected error from empty playback")
	}
}
