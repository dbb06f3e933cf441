//go:build linux

package hid

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// writeDevice writes one report to the gadget device. The descriptor is
// opened non-blocking so a write with no USB host attached fails fast
// instead of hanging the executor.
func writeDevice(path string, report []byte) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd)

	n, err := unix.Write(fd, report)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if n != len(report) {
		return fmt.Errorf("write %s: short write (%d of %d bytes)", path, n, len(report))
	}
	return nil
}

// DeviceAvailable reports whether the gadget device exists and is writable.
func DeviceAvailable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
