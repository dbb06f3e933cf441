// Package hid abstracts the destination for emitted HID reports: the USB
// gadget character devices on the target hardware, or a textual trace when
// no device is available. Write failures never surface to callers; a failed
// device write falls back to the trace line.
package hid

import (
	"fmt"
	"log"
	"strings"
)

// Trace carries the human-readable context for a report, used by the trace
// output path. Held is the sorted held-key list for keyboard reports and nil
// for mouse reports (an empty non-nil slice means "no keys held").
type Trace struct {
	Label  string
	Held   []string
	Paused bool
}

// Sink receives HID report bytes in emission order. Implementations must
// not fail: a sink that cannot deliver a report records it some other way.
type Sink interface {
	Write(report []byte, t Trace)
}

// TraceLine formats a report the way the trace path prints it:
// hex bytes, debug label, held-key set and pause marker.
func TraceLine(report []byte, t Trace) string {
	var b strings.Builder
	b.WriteString("HID: [")
	for i, by := range report {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", by)
	}
	b.WriteString("] ")
	b.WriteString(t.Label)
	if t.Held != nil {
		if len(t.Held) > 0 {
			quoted := make([]string, len(t.Held))
			for i, k := range t.Held {
				quoted[i] = "'" + k + "'"
			}
			b.WriteString(" [HELD: " + strings.Join(quoted, ", ") + "]")
		} else {
			b.WriteString(" [NO KEYS HELD]")
		}
	}
	if t.Paused {
		b.WriteString(" [PAUSED]")
	}
	return b.String()
}

// TraceSink logs every report instead of writing to a device. Used when no
// gadget device is configured, and by tests.
type TraceSink struct {
	// Notify, when set, receives each trace line after it is logged.
	Notify func(line string)
}

// NewTraceSink creates a sink that only traces.
func NewTraceSink() *TraceSink {
	return &TraceSink{}
}

// Write logs the report as a trace line.
func (s *TraceSink) Write(report []byte, t Trace) {
	line := TraceLine(report, t)
	log.Println(line)
	if s.Notify != nil {
		s.Notify(line)
	}
}

// DeviceSink writes reports to a USB gadget character device. The device is
// opened per write so a host disconnect never leaves a stale descriptor. On
// any write failure the report falls back to the trace line.
type DeviceSink struct {
	path string

	// Notify, when set, receives trace lines produced by the fallback path.
	Notify func(line string)
}

// NewDeviceSink creates a sink for the gadget device at path.
func NewDeviceSink(path string) *DeviceSink {
	return &DeviceSink{path: path}
}

// Path returns the device path this sink writes to.
func (s *DeviceSink) Path() string {
	return s.path
}

// Write delivers the report to the device, tracing it on failure.
func (s *DeviceSink) Write(report []byte, t Trace) {
	if err := writeDevice(s.path, report); err != nil {
		line := TraceLine(report, t)
		log.Println(line)
		if s.Notify != nil {
			s.Notify(line)
		}
	}
}
