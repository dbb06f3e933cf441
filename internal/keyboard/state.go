// Package keyboard maintains the authoritative held-key state of the
// emulated USB keyboard and renders it into 8-byte HID input reports.
package keyboard

import (
	"sort"
	"sync"
	"time"

	"github.com/veltalldev/hid-server/internal/hid"
	"github.com/veltalldev/hid-server/internal/keymap"
)

// ReportSize is the length of a HID keyboard input report:
// [modifier, reserved, key1..key6].
const ReportSize = 8

// maxSlots is the number of key slots a boot-protocol report carries. Keys
// held beyond the first six are tracked but not reported.
const maxSlots = 6

// DefaultTapDelay is the delay between the down and up edges of a tap.
const DefaultTapDelay = 10 * time.Millisecond

// Edge is the transition a key action performs.
type Edge int

const (
	// EdgeTap presses and releases the key with a short delay between.
	EdgeTap Edge = iota
	// EdgeDown presses and holds the key.
	EdgeDown
	// EdgeUp releases the key.
	EdgeUp
)

// String returns the edge name as it appears in trace labels.
func (e Edge) String() string {
	switch e {
	case EdgeDown:
		return "DOWN"
	case EdgeUp:
		return "UP"
	default:
		return "TAP"
	}
}

// State tracks which keys are currently held and renders reports.
// Mutations have a single owner at any time; the held set may be read
// from other goroutines.
type State struct {
	mu       sync.Mutex
	sink     hid.Sink
	held     map[string]struct{}
	tapDelay time.Duration

	// PausedProbe, when set, stamps the pause marker onto trace fallback
	// lines. The executor wires this to its own state.
	PausedProbe func() bool
}

// NewState creates an empty keyboard state writing reports to sink.
func NewState(sink hid.Sink) *State {
	return &State{
		sink:     sink,
		held:     make(map[string]struct{}),
		tapDelay: DefaultTapDelay,
	}
}

// SetTapDelay overrides the delay between the two edges of a tap.
func (s *State) SetTapDelay(d time.Duration) {
	if d > 0 {
		s.tapDelay = d
	}
}

// Apply performs one key action and emits a report per edge: one for Down
// or Up, two for Tap. Pressing an already-held key or releasing a non-held
// key leaves the set unchanged but still emits a report. Key names unknown
// to the key table stay in the held set and render to nothing.
func (s *State) Apply(key string, edge Edge) {
	switch edge {
	case EdgeDown:
		s.press(key)
	case EdgeUp:
		s.release(key)
	case EdgeTap:
		s.press(key)
		time.Sleep(s.tapDelay)
		s.release(key)
	}
}

func (s *State) press(key string) {
	s.mu.Lock()
	s.held[key] = struct{}{}
	s.mu.Unlock()
	s.emit("'" + key + "' DOWN")
}

func (s *State) release(key string) {
	s.mu.Lock()
	delete(s.held, key)
	s.mu.Unlock()
	s.emit("'" + key + "' UP")
}

// Clear releases all held keys and emits a single all-zero report. It is a
// no-op when nothing is held. Run cleanup calls this so the emulated
// keyboard never stays stuck holding keys.
func (s *State) Clear() {
	s.mu.Lock()
	if len(s.held) == 0 {
		s.mu.Unlock()
		return
	}
	s.held = make(map[string]struct{})
	s.mu.Unlock()
	s.emit("CLEANUP")
}

// HeldCount returns the number of logically held keys, reported or not.
func (s *State) HeldCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// HeldKeys returns the held key names in sorted order.
func (s *State) HeldKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heldKeysLocked()
}

func (s *State) heldKeysLocked() []string {
	keys := make([]string, 0, len(s.held))
	for k := range s.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot renders the current state into a fresh 8-byte report. Modifier
// keys set their bit in byte 0; the first six non-modifier keys in ascending
// usage-code order fill the slots. Recomputed on every call, never cached.
func (s *State) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() []byte {
	report := make([]byte, ReportSize)

	var slotCodes []byte
	seen := make(map[byte]struct{})
	for name := range s.held {
		code, ok := keymap.Code(name)
		if !ok {
			continue
		}
		if keymap.IsModifier(code) {
			report[0] |= keymap.ModifierBit(code)
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		slotCodes = append(slotCodes, code)
	}

	sort.Slice(slotCodes, func(i, j int) bool { return slotCodes[i] < slotCodes[j] })
	for i, code := range slotCodes {
		if i == maxSlots {
			break
		}
		report[2+i] = code
	}
	return report
}

// emit renders the state and writes one report. The snapshot and the held
// list are taken under the lock; the sink write happens outside it so a
// slow device never blocks readers.
func (s *State) emit(label string) {
	s.mu.Lock()
	report := s.snapshotLocked()
	held := s.heldKeysLocked()
	s.mu.Unlock()

	t := hid.Trace{Label: label, Held: held}
	if s.PausedProbe != nil {
		t.Paused = s.PausedProbe()
	}
	s.sink.Write(report, t)
}
