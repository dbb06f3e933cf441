//go:build !linux

package hid

import "fmt"

// USB gadget devices exist only on Linux; elsewhere every device write
// takes the trace fallback.

func writeDevice(path string, report []byte) error {
	return fmt.Errorf("gadget device %s not supported on this platform", path)
}

// DeviceAvailable reports whether the gadget device is usable (never, off Linux).
func DeviceAvailable(path string) bool {
	return false
}
