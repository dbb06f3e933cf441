package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/veltalldev/hid-server/internal/config"
	"github.com/veltalldev/hid-server/internal/macro"
	"github.com/veltalldev/hid-server/internal/mouse"
)

// traceLog collects trace lines from the engine callback.
type traceLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *traceLog) add(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *traceLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func (l *traceLog) indexOf(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, line := range l.lines {
		if strings.Contains(line, substr) {
			return i
		}
	}
	return -1
}

func newTestEngine() (*Engine, *traceLog) {
	cfg := config.DefaultConfig()
	cfg.Devices.TraceOnly = true
	cfg.Macro.TapDelayMs = 1
	cfg.Macro.SleepSliceMs = 5
	cfg.Mouse.Overshoot = 300
	cfg.Mouse.ResetGapMs = 1
	cfg.Mouse.MoveGapMs = 1
	cfg.Mouse.SettleDelayMs = 1
	cfg.Mouse.ClickDelayMs = 1
	cfg.Mouse.ClickHoldMs = 1

	e := New(cfg)
	log := &traceLog{}
	e.SetOnTrace(log.add)
	return e, log
}

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.Status().State == "idle" {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Expected engine to return to idle, still %s", e.Status().State)
}

// TestStartMacro tests that a macro runs to completion and status recovers
func TestStartMacro(t *testing.T) {
	e, log := newTestEngine()

	err := e.StartMacro("demo.ahk", "Send, {a Down}\nSleep, 200\nSend, {a Up}\n")
	if err != nil {
		t.Fatalf("StartMacro failed: %v", err)
	}

	st := e.Status()
	if st.Script != "demo.ahk" {
		t.Errorf("Expected script demo.ahk, got %q", st.Script)
	}
	if st.StartedAt.IsZero() {
		t.Error("Expected StartedAt to be set")
	}

	waitIdle(t, e)

	if log.indexOf("'a' DOWN") == -1 {
		t.Error("Expected a DOWN trace line")
	}
	if log.indexOf("'a' UP") == -1 {
		t.Error("Expected an UP trace line")
	}
}

// TestStartMacroParseError tests that malformed scripts fail fast
func TestStartMacroParseError(t *testing.T) {
	e, _ := newTestEngine()

	err := e.StartMacro("bad.ahk", "Loop, 3\nSend, {a}\n")
	var perr *macro.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}

	// The slot must not be burned by a failed parse.
	if st := e.Status().State; st != "idle" {
		t.Errorf("Expected idle after parse error, got %s", st)
	}
	if err := e.SendKey("a", 5); err != nil {
		t.Errorf("Expected engine usable after parse error, got %v", err)
	}
}

// TestBusyRejectsOverlap tests that a running macro blocks all other work
func TestBusyRejectsOverlap(t *testing.T) {
	e, _ := newTestEngine()

	if err := e.StartMacro("long.ahk", "Sleep, 5000\n"); err != nil {
		t.Fatalf("StartMacro failed: %v", err)
	}
	defer func() {
		e.Stop()
		waitIdle(t, e)
	}()

	if err := e.StartMacro("second.ahk", "Sleep, 1\n"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for second start, got %v", err)
	}
	if err := e.SendKey("a", 5); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for send_key, got %v", err)
	}
	if err := e.SendCombo("ctrl+c", 5); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for combo, got %v", err)
	}
	if err := e.MoveMouse(10, 10); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for move, got %v", err)
	}
	if err := e.Click(10, 10); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for click, got %v", err)
	}
}

// TestStopWaitsForCleanup tests that Stop returns only after held keys
// were released
func TestStopWaitsForCleanup(t *testing.T) {
	e, log := newTestEngine()

	if err := e.StartMacro("hold.ahk", "Send, {a Down}\nSend, {b Down}\nSleep, 5000\n"); err != nil {
		t.Fatalf("StartMacro failed: %v", err)
	}

	// Let the downs land before cancelling.
	deadline := time.Now().Add(time.Second)
	for log.indexOf("'b' DOWN") == -1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if log.indexOf("CLEANUP") == -1 {
		t.Error("Expected CLEANUP trace line after stop")
	}
	if held := e.Status().HeldKeys; len(held) != 0 {
		t.Errorf("Expected no held keys after stop, got %v", held)
	}
	waitIdle(t, e)
}

// TestPauseResume tests the status round trip through paused
func TestPauseResume(t *testing.T) {
	e, _ := newTestEngine()

	if err := e.StartMacro("pause.ahk", "Sleep, 5000\n"); err != nil {
		t.Fatalf("StartMacro failed: %v", err)
	}

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for e.Status().State != "paused" && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if st := e.Status().State; st != "paused" {
		t.Fatalf("Expected paused, got %s", st)
	}

	if err := e.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	deadline = time.Now().Add(time.Second)
	for e.Status().State != "running" && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if st := e.Status().State; st != "running" {
		t.Errorf("Expected running after resume, got %s", st)
	}

	e.Stop()
	waitIdle(t, e)
}

// TestControlsWhenIdle tests that run controls reject an idle engine
func TestControlsWhenIdle(t *testing.T) {
	e, _ := newTestEngine()

	if err := e.Pause(); !errors.Is(err, ErrIdle) {
		t.Errorf("Expected ErrIdle from Pause, got %v", err)
	}
	if err := e.Resume(); !errors.Is(err, ErrIdle) {
		t.Errorf("Expected ErrIdle from Resume, got %v", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrIdle) {
		t.Errorf("Expected ErrIdle from Stop, got %v", err)
	}
}

// TestSendKey tests the synchronous single-key operation
func TestSendKey(t *testing.T) {
	e, log := newTestEngine()

	if err := e.SendKey("Enter", 5); err != nil {
		t.Fatalf("SendKey failed: %v", err)
	}

	if log.indexOf("'enter' DOWN") == -1 {
		t.Error("Expected enter DOWN trace line")
	}
	if log.indexOf("'enter' UP") == -1 {
		t.Error("Expected enter UP trace line")
	}
	if st := e.Status().State; st != "idle" {
		t.Errorf("Expected idle after SendKey, got %s", st)
	}
}

// TestSendKeyUnknown tests that unknown key names are rejected up front
func TestSendKeyUnknown(t *testing.T) {
	e, log := newTestEngine()

	if err := e.SendKey("notakey", 5); err == nil {
		t.Fatal("Expected error for unknown key")
	}
	if lines := log.snapshot(); len(lines) != 0 {
		t.Errorf("Expected no reports for unknown key, got %v", lines)
	}
}

// TestSendCombo tests chord ordering: presses in order, releases reversed
func TestSendCombo(t *testing.T) {
	e, log := newTestEngine()

	if err := e.SendCombo("ctrl+alt+delete", 5); err != nil {
		t.Fatalf("SendCombo failed: %v", err)
	}

	ctrlDown := log.indexOf("'ctrl' DOWN")
	altDown := log.indexOf("'alt' DOWN")
	delDown := log.indexOf("'delete' DOWN")
	delUp := log.indexOf("'delete' UP")
	altUp := log.indexOf("'alt' UP")
	ctrlUp := log.indexOf("'ctrl' UP")

	if ctrlDown == -1 || altDown == -1 || delDown == -1 {
		t.Fatalf("Expected all three downs, got %v", log.snapshot())
	}
	if !(ctrlDown < altDown && altDown < delDown) {
		t.Error("Expected presses in combo order")
	}
	if !(delUp < altUp && altUp < ctrlUp) {
		t.Error("Expected releases in reverse order")
	}
	if held := e.Status().HeldKeys; len(held) != 0 {
		t.Errorf("Expected no held keys after combo, got %v", held)
	}
}

// TestSendComboUnknownKey tests that a bad combo is rejected whole
func TestSendComboUnknownKey(t *testing.T) {
	e, log := newTestEngine()

	if err := e.SendCombo("ctrl+bogus", 5); err == nil {
		t.Fatal("Expected error for unknown combo key")
	}
	if lines := log.snapshot(); len(lines) != 0 {
		t.Errorf("Expected no reports for rejected combo, got %v", lines)
	}
}

// TestMoveMouse tests the absolute move through the engine
func TestMoveMouse(t *testing.T) {
	e, log := newTestEngine()

	if err := e.MoveMouse(1280, 800); err != nil {
		t.Fatalf("MoveMouse failed: %v", err)
	}
	if log.indexOf("RESET") == -1 {
		t.Error("Expected re-centering trace lines")
	}
	if log.indexOf("MOVE") == -1 {
		t.Error("Expected movement trace lines")
	}
	if st := e.Status().State; st != "idle" {
		t.Errorf("Expected idle after move, got %s", st)
	}
}

// TestMoveMouseOutOfBounds tests coordinate validation pass-through
func TestMoveMouseOutOfBounds(t *testing.T) {
	e, _ := newTestEngine()

	err := e.MoveMouse(99999, 10)
	var oob *mouse.OutOfBoundsError
	if !errors.As(err, &oob) {
		t.Fatalf("Expected OutOfBoundsError, got %v", err)
	}
	if st := e.Status().State; st != "idle" {
		t.Errorf("Expected idle after rejected move, got %s", st)
	}
}

// TestClick tests the click sequence through the engine
func TestClick(t *testing.T) {
	e, log := newTestEngine()

	if err := e.Click(100, 100); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	down := log.indexOf("BTN down")
	up := log.indexOf("BTN up")
	if down == -1 || up == -1 {
		t.Fatalf("Expected button trace lines, got %v", log.snapshot())
	}
	if down > up {
		t.Error("Expected press before release")
	}
}

// TestStatusCallback tests that state transitions are pushed
func TestStatusCallback(t *testing.T) {
	e, _ := newTestEngine()

	var mu sync.Mutex
	var states []string
	e.SetOnStatus(func(st Status) {
		mu.Lock()
		states = append(states, st.State)
		mu.Unlock()
	})

	if err := e.SendKey("a", 5); err != nil {
		t.Fatalf("SendKey failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 {
		t.Fatal("Expected status pushes")
	}
	sawRunning := false
	for _, s := range states {
		if s == "running" {
			sawRunning = true
		}
	}
	if !sawRunning {
		t.Errorf("Expected a running push, got %v", states)
	}
	if states[len(states)-1] != "idle" {
		t.Errorf("Expected final push to be idle, got %v", states)
	}
}
