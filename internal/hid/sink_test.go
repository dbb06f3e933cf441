package hid

import "testing"

// TestTraceLineKeyboard tests the keyboard trace format with held keys
func TestTraceLineKeyboard(t *testing.T) {
	report := []byte{0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}
	line := TraceLine(report, Trace{Label: "'a' DOWN", Held: []string{"a"}})

	want := "HID: [00 00 04 00 00 00 00 00] 'a' DOWN [HELD: 'a']"
	if line != want {
		t.Errorf("Expected %q, got %q", want, line)
	}
}

// TestTraceLineNoKeysHeld tests the empty held set marker
func TestTraceLineNoKeysHeld(t *testing.T) {
	report := make([]byte, 8)
	line := TraceLine(report, Trace{Label: "'a' UP", Held: []string{}})

	want := "HID: [00 00 00 00 00 00 00 00] 'a' UP [NO KEYS HELD]"
	if line != want {
		t.Errorf("Expected %q, got %q", want, line)
	}
}

// TestTraceLinePaused tests the pause marker suffix
func TestTraceLinePaused(t *testing.T) {
	report := make([]byte, 8)
	line := TraceLine(report, Trace{Label: "CLEANUP", Held: []string{}, Paused: true})

	if got, want := line, "HID: [00 00 00 00 00 00 00 00] CLEANUP [NO KEYS HELD] [PAUSED]"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestTraceLineMouse tests that mouse reports omit the held-key segment
func TestTraceLineMouse(t *testing.T) {
	report := []byte{0x01, 0x00, 0x00, 0x00}
	line := TraceLine(report, Trace{Label: "BTN down"})

	want := "HID: [01 00 00 00] BTN down"
	if line != want {
		t.Errorf("Expected %q, got %q", want, line)
	}
}

// TestTraceSinkNotify tests that the notify hook receives trace lines
func TestTraceSinkNotify(t *testing.T) {
	sink := NewTraceSink()
	var got string
	sink.Notify = func(line string) { got = line }

	sink.Write([]byte{0x00, 0x00, 0x00, 0x00}, Trace{Label: "MOVE dx=1 dy=0"})

	if got == "" {
		t.Fatal("Expected notify to receive the trace line")
	}
	if got != "HID: [00 00 00 00] MOVE dx=1 dy=0" {
		t.Errorf("Unexpected trace line: %q", got)
	}
}
