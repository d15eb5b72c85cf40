package radio

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// SerialLink is a Link over a serial port.
type SerialLink struct {
	mu      sync.Mutex
	port    serial.Port
	device  string
	maxPoll int
	buf     []byte
	closed  bool
}

// OpenSerial opens the configured device. Failure here is fatal to the caller.
func OpenSerial(cfg Config) (*SerialLink, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &TransportError{Op: "open", Device: cfg.Device, Err: err}
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, &TransportError{Op: "open", Device: cfg.Device, Err: fmt.Errorf("set read timeout: %w", err)}
	}

	return &SerialLink{
		port:    port,
		device:  cfg.Device,
		maxPoll: cfg.MaxPoll,
		buf:     make([]byte, 512),
	}, nil
}

// Write sends p in full.
func (l *SerialLink) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return &TransportError{Op: "write", Device: l.device, Err: ErrClosed}
	}

	for len(p) > 0 {
		n, err := l.port.Write(p)
		if err != nil {
			return &TransportError{Op: "write", Device: l.device, Err: err}
		}
		p = p[n:]
	}
	return nil
}

// Poll drains available input. It stops at the first read that times out
// empty, or once maxPoll bytes have been collected.
func (l *SerialLink) Poll() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, &TransportError{Op: "poll", Device: l.device, Err: ErrClosed}
	}

	var out []byte
	for len(out) < l.maxPoll {
		n, err := l.port.Read(l.buf)
		if err != nil {
			return out, &TransportError{Op: "poll", Device: l.device, Err: err}
		}
		if n == 0 {
			break
		}
		out = append(out, l.buf[:n]...)
	}
	return out, nil
}

// Close releases the port.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

// Device returns the port name.
func (l *SerialLink) Device() string {
	return l.device
}
