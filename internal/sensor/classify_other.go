//go:build !linux

package sensor

func classifyI2CError(err error) error {
	return err
}
