package radio

import (
	"errors"
	"time"
)

// ErrRadioBusy is returned when the E32 AUX line stays low past the wait bound.
var ErrRadioBusy = errors.New("radio module busy (AUX low)")

// E32Config selects the GPIO lines wired to an E32 LoRa module.
// A negative line offset disables that line; with AUX disabled no busy
// check is done.
type E32Config struct {
	Chip    string        `yaml:"chip"`
	M0      int           `yaml:"m0"`
	M1      int           `yaml:"m1"`
	AUX     int           `yaml:"aux"`
	AuxWait time.Duration `yaml:"aux_wait"`
}

// Enabled reports whether any module line is configured.
func (c E32Config) Enabled() bool {
	return c.M0 >= 0 || c.M1 >= 0 || c.AUX >= 0
}

// ApplyDefaults fills unset fields. Zero line offsets are valid GPIO lines,
// so disabling must be explicit (-1); the config loader seeds -1.
func (c *E32Config) ApplyDefaults() {
	if c.Chip == "" {
		c.Chip = "gpiochip0"
	}
	if c.AuxWait == 0 {
		c.AuxWait = 100 * time.Millisecond
	}
}

// LineReader reads one GPIO line.
type LineReader interface {
	Value() (int, error)
}

// E32Link gates writes on the module's AUX line: the module drives AUX low
// while its buffer is busy.
type E32Link struct {
	Link
	device string
	aux    LineReader
	wait   time.Duration
	step   time.Duration
	sleep  func(time.Duration)
	now    func() time.Time
	pins   interface{ Close() error }
}

// NewE32Link wraps link with an AUX busy check.
func NewE32Link(link Link, device string, aux LineReader, wait time.Duration) *E32Link {
	return &E32Link{
		Link:   link,
		device: device,
		aux:    aux,
		wait:   wait,
		step:   5 * time.Millisecond,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Write waits up to the configured bound for AUX high, then writes.
func (e *E32Link) Write(p []byte) error {
	if e.aux != nil {
		if err := e.waitIdle(); err != nil {
			return &TransportError{Op: "write", Device: e.device, Err: err}
		}
	}
	return e.Link.Write(p)
}

func (e *E32Link) waitIdle() error {
	deadline := e.now().Add(e.wait)
	for {
		v, err := e.aux.Value()
		if err != nil {
			return err
		}
		if v == 1 {
			return nil
		}
		if !e.now().Before(deadline) {
			return ErrRadioBusy
		}
		e.sleep(e.step)
	}
}

// Close releases the GPIO lines and the underlying link.
func (e *E32Link) Close() error {
	var pinErr error
	if e.pins != nil {
		pinErr = e.pins.Close()
	}
	return errors.Join(e.Link.Close(), pinErr)
}
