//go:build linux

package sensor

import (
	"errors"
	"fmt"
	"syscall"
)

// classifyI2CError maps i2c-dev NACK errnos to ErrNoAck.
func classifyI2CError(err error) error {
	if errors.Is(err, syscall.ENXIO) || errors.Is(err, syscall.EREMOTEIO) {
		return fmt.Errorf("%w: %v", ErrNoAck, err)
	}
	return err
}
