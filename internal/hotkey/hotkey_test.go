package hotkey

import (
	"testing"
	"time"
)

func firedChan() (chan struct{}, func()) {
	ch := make(chan struct{}, 8)
	return ch, func() { ch <- struct{}{} }
}

func waitFired(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("chord did not fire")
	}
}

func assertQuiet(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("chord fired unexpectedly")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChordFiresWhenComplete(t *testing.T) {
	m := New()
	fired, fn := firedChan()
	if err := m.Bind("Ctrl+Shift+F12", fn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	m.keyEvent("CTRL", true)
	m.keyEvent("SHIFT", true)
	assertQuiet(t, fired)

	m.keyEvent("F12", true)
	waitFired(t, fired)
}

func TestChordDoesNotRepeatWhileHeld(t *testing.T) {
	// Auto-repeat re-asserts held keys; that must not re-trigger.
	m := New()
	fired, fn := firedChan()
	if err := m.Bind("Ctrl+X", fn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	m.keyEvent("CTRL", true)
	m.keyEvent("X", true)
	waitFired(t, fired)

	m.keyEvent("X", true)
	m.keyEvent("CTRL", true)
	assertQuiet(t, fired)
}

func TestChordRearmsAfterRelease(t *testing.T) {
	m := New()
	fired, fn := firedChan()
	if err := m.Bind("Ctrl+X", fn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	m.keyEvent("CTRL", true)
	m.keyEvent("X", true)
	waitFired(t, fired)

	m.keyEvent("X", false)
	m.keyEvent("X", true)
	waitFired(t, fired)
}

func TestBindIsCaseInsensitive(t *testing.T) {
	m := New()
	fired, fn := firedChan()
	if err := m.Bind("ctrl+shift+esc", fn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	m.keyEvent("CTRL", true)
	m.keyEvent("SHIFT", true)
	m.keyEvent("ESC", true)
	waitFired(t, fired)
}

func TestEmptyChordNeverFires(t *testing.T) {
	m := New()
	fired, fn := firedChan()
	if err := m.Bind("", fn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	m.keyEvent("CTRL", true)
	m.keyEvent("SHIFT", true)
	assertQuiet(t, fired)
}

func TestBindRejectsEmptyChordPart(t *testing.T) {
	m := New()
	if err := m.Bind("Ctrl++F12", nil); err == nil {
		t.Fatal("expected an error for a malformed chord")
	}
}

func TestUnrelatedKeysDoNotFire(t *testing.T) {
	m := New()
	fired, fn := firedChan()
	if err := m.Bind("Ctrl+Shift+F12", fn); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	m.keyEvent("CTRL", true)
	m.keyEvent("SHIFT", true)
	m.keyEvent("A", true)
	assertQuiet(t, fired)
}
