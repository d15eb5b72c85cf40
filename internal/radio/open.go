package radio

// Open opens the serial device and, when E32 lines are configured, wraps it
// with module control. Failure here is fatal to the caller.
func Open(cfg Config) (Link, error) {
	l, err := OpenSerial(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.E32.Enabled() {
		return l, nil
	}
	e, err := OpenE32(l, cfg.Device, cfg.E32)
	if err != nil {
		l.Close()
		return nil, &TransportError{Op: "open", Device: cfg.Device, Err: err}
	}
	return e, nil
}
