// Package engine coordinates the HID server's input resources. It owns the
// keyboard state machine, the mouse controller and their report sinks, and
// serializes macro runs and direct operations so only one thing drives the
// emulated devices at a time.
package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/veltalldev/hid-server/internal/config"
	"github.com/veltalldev/hid-server/internal/executor"
	"github.com/veltalldev/hid-server/internal/hid"
	"github.com/veltalldev/hid-server/internal/keyboard"
	"github.com/veltalldev/hid-server/internal/keymap"
	"github.com/veltalldev/hid-server/internal/macro"
	"github.com/veltalldev/hid-server/internal/mouse"
)

// ErrBusy is returned when an operation would overlap a run in progress.
var ErrBusy = errors.New("another operation is in progress")

// ErrIdle is returned by run controls when no macro is running.
var ErrIdle = errors.New("no macro is running")

// Direct operation timing, matching the single-key and combo sequences the
// HTTP API executes.
const (
	DefaultKeyHold   = 100 * time.Millisecond
	DefaultComboHold = 50 * time.Millisecond
	comboGap         = 10 * time.Millisecond
	directSettle     = 100 * time.Millisecond
)

// Status is a point-in-time view of the engine.
type Status struct {
	State     string
	Script    string
	StartedAt time.Time
	HeldKeys  []string
}

// DeviceStatus reports where one device's reports go.
type DeviceStatus struct {
	Path      string
	Available bool
}

// run is one unit of exclusive device ownership: a macro run, a direct key
// operation, or a mouse operation (exec is nil for the latter).
type run struct {
	name    string
	started time.Time
	exec    *executor.Executor
	done    chan struct{}
}

// Engine serializes macro runs and direct operations.
type Engine struct {
	mu    sync.Mutex
	keys  *keyboard.State
	mouse *mouse.Controller
	cfg   *config.Config

	keyboardDev DeviceStatus
	mouseDev    DeviceStatus

	run *run

	// Callbacks for UI notifications
	onStatus func(Status)
	onTrace  func(line string)
}

// New creates an engine from the given configuration. Each device falls
// back to trace output when its gadget path is not writable.
func New(cfg *config.Config) *Engine {
	e := &Engine{cfg: cfg}

	kbSink, kbReal := e.newSink(cfg.Devices.Keyboard, cfg.Devices.TraceOnly)
	e.keyboardDev = DeviceStatus{Path: cfg.Devices.Keyboard, Available: kbReal}
	e.keys = keyboard.NewState(kbSink)
	e.keys.SetTapDelay(cfg.Macro.TapDelay())

	mSink, mReal := e.newSink(cfg.Devices.Mouse, cfg.Devices.TraceOnly)
	e.mouseDev = DeviceStatus{Path: cfg.Devices.Mouse, Available: mReal}
	e.mouse = mouse.New(mSink, mouse.Options{
		ScreenWidth:  cfg.Screen.Width,
		ScreenHeight: cfg.Screen.Height,
		DeviceMaxX:   cfg.Screen.DeviceMaxX,
		DeviceMaxY:   cfg.Screen.DeviceMaxY,
		Overshoot:    cfg.Mouse.Overshoot,
		MoveChunk:    cfg.Mouse.MoveChunk,
		ResetGap:     time.Duration(cfg.Mouse.ResetGapMs) * time.Millisecond,
		MoveGap:      time.Duration(cfg.Mouse.MoveGapMs) * time.Millisecond,
		SettleDelay:  time.Duration(cfg.Mouse.SettleDelayMs) * time.Millisecond,
		ClickDelay:   time.Duration(cfg.Mouse.ClickDelayMs) * time.Millisecond,
		ClickHold:    time.Duration(cfg.Mouse.ClickHoldMs) * time.Millisecond,
	})

	return e
}

func (e *Engine) newSink(path string, traceOnly bool) (hid.Sink, bool) {
	if !traceOnly && hid.DeviceAvailable(path) {
		log.Printf("Engine: writing reports to %s", path)
		s := hid.NewDeviceSink(path)
		s.Notify = e.notifyTrace
		return s, true
	}
	log.Printf("Engine: %s not available, reports go to trace output", path)
	s := hid.NewTraceSink()
	s.Notify = e.notifyTrace
	return s, false
}

// SetOnStatus sets the callback for engine state changes
func (e *Engine) SetOnStatus(callback func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatus = callback
}

// SetOnTrace sets the callback for HID trace lines
func (e *Engine) SetOnTrace(callback func(line string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrace = callback
}

// KeyboardDevice reports the keyboard report destination.
func (e *Engine) KeyboardDevice() DeviceStatus { return e.keyboardDev }

// MouseDevice reports the mouse report destination.
func (e *Engine) MouseDevice() DeviceStatus { return e.mouseDev }

// StartMacro parses source and executes it asynchronously. It returns a
// *macro.ParseError for malformed scripts and ErrBusy while another
// operation is active.
func (e *Engine) StartMacro(name, source string) error {
	cmds, err := macro.Parse(source)
	if err != nil {
		return err
	}

	r, err := e.acquire(name, true)
	if err != nil {
		return err
	}

	log.Printf("Engine: starting macro '%s' (%d commands)", name, len(cmds))
	e.pushStatus()

	go func() {
		r.exec.Run(cmds)
		e.release(r)
	}()
	return nil
}

// Pause suspends the running macro at the next command or sleep boundary.
func (e *Engine) Pause() error {
	return e.signal(executor.SignalPause)
}

// Resume continues a paused macro from where it froze.
func (e *Engine) Resume() error {
	return e.signal(executor.SignalResume)
}

// Stop cancels the active run and waits until it has unwound and cleanup
// was emitted.
func (e *Engine) Stop() error {
	e.mu.Lock()
	r := e.run
	e.mu.Unlock()
	if r == nil || r.exec == nil {
		return ErrIdle
	}

	r.exec.Signal(executor.SignalCancel)
	<-r.done
	return nil
}

func (e *Engine) signal(sig executor.Signal) error {
	e.mu.Lock()
	r := e.run
	e.mu.Unlock()
	if r == nil || r.exec == nil {
		return ErrIdle
	}
	r.exec.Signal(sig)
	return nil
}

// Status returns the current engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() Status {
	st := Status{State: "idle", HeldKeys: e.keys.HeldKeys()}
	if e.run != nil {
		st.Script = e.run.name
		st.StartedAt = e.run.started
		if e.run.exec != nil {
			st.State = e.run.exec.State().String()
		} else {
			st.State = "running"
		}
	}
	return st
}

// SendKey holds a single key for holdMs milliseconds, then releases it.
// Runs synchronously and returns once the key has settled.
func (e *Engine) SendKey(key string, holdMs int) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := keymap.Code(key); !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	hold := DefaultKeyHold
	if holdMs > 0 {
		hold = time.Duration(holdMs) * time.Millisecond
	}

	cmds := []macro.Command{
		{Kind: macro.KindKey, Key: key, Edge: keyboard.EdgeDown},
		{Kind: macro.KindSleep, Duration: hold},
		{Kind: macro.KindKey, Key: key, Edge: keyboard.EdgeUp},
		{Kind: macro.KindSleep, Duration: directSettle},
	}
	return e.runDirect("send_key", cmds)
}

// SendCombo presses the keys of a "ctrl+alt+del" style combo in order,
// holds them together, then releases in reverse order.
func (e *Engine) SendCombo(combo string, holdMs int) error {
	names, err := keymap.ParseCombo(combo)
	if err != nil {
		return err
	}
	hold := DefaultComboHold
	if holdMs > 0 {
		hold = time.Duration(holdMs) * time.Millisecond
	}

	var cmds []macro.Command
	for i, name := range names {
		if i > 0 {
			cmds = append(cmds, macro.Command{Kind: macro.KindSleep, Duration: comboGap})
		}
		cmds = append(cmds, macro.Command{Kind: macro.KindKey, Key: name, Edge: keyboard.EdgeDown})
	}
	cmds = append(cmds, macro.Command{Kind: macro.KindSleep, Duration: hold})
	for i := len(names) - 1; i >= 0; i-- {
		cmds = append(cmds, macro.Command{Kind: macro.KindKey, Key: names[i], Edge: keyboard.EdgeUp})
		if i > 0 {
			cmds = append(cmds, macro.Command{Kind: macro.KindSleep, Duration: comboGap})
		}
	}
	cmds = append(cmds, macro.Command{Kind: macro.KindSleep, Duration: directSettle})
	return e.runDirect("send_key_combo", cmds)
}

// MoveMouse places the cursor at absolute screen coordinates.
func (e *Engine) MoveMouse(x, y int) error {
	r, err := e.acquire("move_mouse", false)
	if err != nil {
		return err
	}
	moveErr := e.mouse.MoveTo(x, y)
	e.release(r)
	return moveErr
}

// Click moves to the given screen coordinates and left-clicks.
func (e *Engine) Click(x, y int) error {
	r, err := e.acquire("click", false)
	if err != nil {
		return err
	}
	clickErr := e.mouse.Click(x, y)
	e.release(r)
	return clickErr
}

// runDirect executes a synthesized command sequence synchronously while
// holding the busy slot. Direct operations share the executor so they get
// the same trace output and held-key cleanup as macro runs.
func (e *Engine) runDirect(name string, cmds []macro.Command) error {
	r, err := e.acquire(name, true)
	if err != nil {
		return err
	}
	e.pushStatus()
	r.exec.Run(cmds)
	e.release(r)
	return nil
}

// acquire claims the busy slot. withExec attaches a fresh executor wired
// to the keyboard state; mouse operations claim the slot without one.
func (e *Engine) acquire(name string, withExec bool) (*run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != nil {
		return nil, ErrBusy
	}

	r := &run{name: name, started: time.Now(), done: make(chan struct{})}
	if withExec {
		ex := executor.New(e.keys)
		ex.SetSleepSlice(e.cfg.Macro.SleepSlice())
		ex.OnState = func(executor.State) { e.pushStatus() }
		r.exec = ex
	}
	e.run = r
	return r, nil
}

func (e *Engine) release(r *run) {
	e.mu.Lock()
	if e.run == r {
		e.run = nil
	}
	e.mu.Unlock()
	close(r.done)
	e.pushStatus()
}

func (e *Engine) pushStatus() {
	e.mu.Lock()
	cb := e.onStatus
	st := e.statusLocked()
	e.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}

func (e *Engine) notifyTrace(line string) {
	e.mu.Lock()
	cb := e.onTrace
	e.mu.Unlock()
	if cb != nil {
		cb(line)
	}
}
