//go:build !windows && !darwin

package hotkey

import "log"

func (m *Monitor) startPlatform() error {
	log.Println("Hotkey: no global keyboard hook on this platform; emergency chord disabled.")
	return nil
}
