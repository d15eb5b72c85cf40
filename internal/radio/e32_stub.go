//go:build !linux

package radio

import "errors"

// OpenE32 is not available on non-Linux platforms.
func OpenE32(link Link, device string, cfg E32Config) (*E32Link, error) {
	return nil, errors.New("e32: gpio not supported on this platform (requires Linux)")
}
