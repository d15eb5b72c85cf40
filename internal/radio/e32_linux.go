//go:build linux

package radio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// e32Pins holds the requested module lines.
type e32Pins struct {
	m0  *gpiocdev.Line
	m1  *gpiocdev.Line
	aux *gpiocdev.Line
}

// OpenE32 puts the module into transparent mode (M0=M1=0) and wraps link so
// writes wait for AUX. Lines with a negative offset are left alone.
func OpenE32(link Link, device string, cfg E32Config) (*E32Link, error) {
	pins := &e32Pins{}

	if cfg.M0 >= 0 {
		l, err := gpiocdev.RequestLine(cfg.Chip, cfg.M0, gpiocdev.AsOutput(0))
		if err != nil {
			return nil, fmt.Errorf("request M0 line %d: %w", cfg.M0, err)
		}
		pins.m0 = l
	}
	if cfg.M1 >= 0 {
		l, err := gpiocdev.RequestLine(cfg.Chip, cfg.M1, gpiocdev.AsOutput(0))
		if err != nil {
			pins.Close()
			return nil, fmt.Errorf("request M1 line %d: %w", cfg.M1, err)
		}
		pins.m1 = l
	}

	e := NewE32Link(link, device, nil, cfg.AuxWait)
	if cfg.AUX >= 0 {
		l, err := gpiocdev.RequestLine(cfg.Chip, cfg.AUX, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			pins.Close()
			return nil, fmt.Errorf("request AUX line %d: %w", cfg.AUX, err)
		}
		pins.aux = l
		e.aux = l
	}
	e.pins = pins
	return e, nil
}

func (p *e32Pins) Close() error {
	var errs []error
	for _, l := range []*gpiocdev.Line{p.m0, p.m1, p.aux} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
