// Package hotkey watches the keyboard system-wide for an emergency stop
// chord. Macro playback types into a different machine, so a chord caught
// on the operator's side is the only way to halt a runaway script.
package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Monitor tracks global key state and fires a callback when every key of
// the bound chord is held at once. The chord fires on the keystroke that
// completes it and re-arms only after one of its keys is released, so
// holding the chord through key auto-repeat triggers a single stop.
type Monitor struct {
	mu      sync.Mutex
	chord   []string
	label   string
	onChord func()
	down    map[string]struct{}
	armed   bool
}

// New returns a Monitor with no chord bound.
func New() *Monitor {
	return &Monitor{
		down:  make(map[string]struct{}),
		armed: true,
	}
}

// Bind sets the chord, e.g. "Ctrl+Shift+F12". Key names are matched
// case-insensitively against the platform hook's names. An empty chord
// leaves the monitor inert.
func (m *Monitor) Bind(chord string, fn func()) error {
	if chord == "" {
		return nil
	}

	var keys []string
	for _, part := range strings.Split(chord, "+") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			return fmt.Errorf("malformed chord %q", chord)
		}
		keys = append(keys, part)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.chord = keys
	m.label = chord
	m.onChord = fn
	return nil
}

// Start installs the platform keyboard hook. On platforms without global
// hook support this logs a notice and the chord never fires.
func (m *Monitor) Start() error {
	return m.startPlatform()
}

// keyEvent is called by the platform hooks with a normalized key name.
// Re-asserting a key that is already down is a no-op, which lets the
// darwin hook resync all modifiers on every flags-changed event.
func (m *Monitor) keyEvent(name string, pressed bool) {
	m.mu.Lock()

	if pressed {
		m.down[name] = struct{}{}
	} else {
		delete(m.down, name)
	}

	if len(m.chord) == 0 {
		m.mu.Unlock()
		return
	}

	complete := true
	for _, k := range m.chord {
		if _, held := m.down[k]; !held {
			complete = false
			break
		}
	}

	fire := false
	switch {
	case complete && m.armed:
		m.armed = false
		fire = true
	case !complete:
		m.armed = true
	}
	label, fn := m.label, m.onChord
	m.mu.Unlock()

	if fire && fn != nil {
		log.Printf("Hotkey: chord %s pressed", label)
		go fn()
	}
}
