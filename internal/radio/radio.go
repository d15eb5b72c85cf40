// Package radio provides the unidirectional serial link between nodes.
// The real implementation uses a serial port (optionally behind an E32 LoRa
// module); the fake implementation allows testing without hardware.
package radio

import (
	"errors"
	"fmt"
	"time"
)

// Baud rates per physical hop.
const (
	BaudRadio = 9600   // E32 radio UART
	BaudHost  = 115200 // relay USB to host
)

// ErrClosed is returned by operations on a closed link.
var ErrClosed = errors.New("link closed")

// Writer is the sending side of a link. Writes are best effort: no
// acknowledgement, no retransmission.
type Writer interface {
	Write(p []byte) error
}

// Poller is the receiving side of a link.
type Poller interface {
	// Poll returns whatever bytes are currently available without waiting
	// longer than the configured read timeout. The result may be empty,
	// a partial line or several lines.
	Poll() ([]byte, error)
}

// Link is an open serial connection.
type Link interface {
	Writer
	Poller
	Close() error
}

// TransportError reports a link that is unavailable.
type TransportError struct {
	Op     string // "open", "write", "poll"
	Device string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("radio %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Config describes one serial hop.
type Config struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	MaxPoll     int           `yaml:"max_poll_bytes"`
	E32         E32Config     `yaml:"e32"`
}

// ApplyDefaults fills unset fields. baud is the hop's default rate.
func (c *Config) ApplyDefaults(baud int) {
	if c.Baud == 0 {
		c.Baud = baud
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 50 * time.Millisecond
	}
	if c.MaxPoll == 0 {
		c.MaxPoll = 4096
	}
	c.E32.ApplyDefaults()
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("device is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud %d", c.Baud)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read_timeout must be positive")
	}
	return nil
}
