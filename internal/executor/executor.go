// Package executor walks a parsed command tree and drives the keyboard
// state machine, honoring pause/resume/cancel signals delivered on a
// control channel. Signals are observed at command boundaries and between
// sleep slices, never mid-report.
package executor

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/veltalldev/hid-server/internal/keyboard"
	"github.com/veltalldev/hid-server/internal/macro"
)

// State is the execution state of a run. Stopped is terminal.
type State int32

const (
	StateRunning State = iota
	StatePaused
	StateStopped
)

// String returns the lower-case state name used by the status API.
func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "running"
	}
}

// Signal is a control message for a running executor.
type Signal int

const (
	SignalPause Signal = iota
	SignalResume
	SignalCancel
)

// DefaultSleepSlice is the wait granularity for interruptible sleeps. A
// cancel or pause takes effect within one slice.
const DefaultSleepSlice = 100 * time.Millisecond

// Executor runs one macro. Create a fresh Executor per run; the keyboard
// state it drives may outlive it.
type Executor struct {
	keys  *keyboard.State
	ctrl  chan Signal
	state atomic.Int32
	slice time.Duration

	// OnState, when set before Run, is called after every committed state
	// transition. Called from the run goroutine.
	OnState func(State)
}

// New creates an executor driving keys. The executor stamps its pause
// state onto the keyboard's trace output.
func New(keys *keyboard.State) *Executor {
	e := &Executor{
		keys:  keys,
		ctrl:  make(chan Signal, 16),
		slice: DefaultSleepSlice,
	}
	keys.PausedProbe = func() bool { return e.State() == StatePaused }
	return e
}

// SetSleepSlice overrides the wait granularity.
func (e *Executor) SetSleepSlice(d time.Duration) {
	if d > 0 {
		e.slice = d
	}
}

// State returns the current execution state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// Signal delivers a control message without blocking. A full channel only
// happens when the run is long gone, so the signal is dropped.
func (e *Executor) Signal(sig Signal) {
	select {
	case e.ctrl <- sig:
	default:
		log.Printf("Executor: control channel full, signal %d dropped", sig)
	}
}

// Run executes the command sequence to completion or cancellation. On every
// exit path any held keys are cleared with one final report, so the
// emulated keyboard is never left holding keys.
func (e *Executor) Run(cmds []macro.Command) {
	e.transition(StateRunning)
	defer e.cleanup()
	e.exec(cmds)
}

func (e *Executor) cleanup() {
	e.transition(StateStopped)
	if n := e.keys.HeldCount(); n > 0 {
		log.Printf("Executor: clearing %d held keys", n)
	}
	e.keys.Clear()
}

// transition commits a state change and notifies the hook once per change.
func (e *Executor) transition(to State) {
	if State(e.state.Swap(int32(to))) != to && e.OnState != nil {
		e.OnState(to)
	}
}

// gate processes pending control signals and blocks while paused. It
// returns false once the run is cancelled.
func (e *Executor) gate() bool {
	for {
		select {
		case sig := <-e.ctrl:
			e.handle(sig)
			continue
		default:
		}

		switch e.State() {
		case StatePaused:
			// Parked until resume or cancel; the channel is never closed.
			e.handle(<-e.ctrl)
		case StateStopped:
			return false
		default:
			return true
		}
	}
}

func (e *Executor) handle(sig Signal) {
	switch sig {
	case SignalPause:
		if e.State() == StateRunning {
			e.transition(StatePaused)
			log.Println("Executor: paused")
		}
	case SignalResume:
		if e.State() == StatePaused {
			e.transition(StateRunning)
			log.Println("Executor: resumed")
		}
	case SignalCancel:
		e.transition(StateStopped)
		log.Println("Executor: cancelled")
	}
}

// exec walks one command sequence depth-first. It returns false when the
// run was cancelled and the walk should unwind.
func (e *Executor) exec(cmds []macro.Command) bool {
	for i := range cmds {
		if !e.gate() {
			return false
		}
		cmd := &cmds[i]
		switch cmd.Kind {
		case macro.KindKey:
			e.keys.Apply(cmd.Key, cmd.Edge)
		case macro.KindSleep:
			if !e.sleep(cmd.Duration) {
				return false
			}
		case macro.KindLoop:
			if !e.runLoop(cmd) {
				return false
			}
		}
	}
	return true
}

// sleep waits for d in slices so a pause or cancel is honored promptly. A
// pause freezes the remaining duration; resuming continues from the exact
// remainder, never from the start.
func (e *Executor) sleep(d time.Duration) bool {
	if d >= 100*time.Millisecond {
		log.Printf("Executor: sleep %v", d)
	}
	remaining := d
	for remaining > 0 {
		if !e.gate() {
			return false
		}
		chunk := e.slice
		if remaining < chunk {
			chunk = remaining
		}
		time.Sleep(chunk)
		remaining -= chunk
	}
	return true
}

func (e *Executor) runLoop(cmd *macro.Command) bool {
	if cmd.Count == nil {
		for i := 1; ; i++ {
			if !e.gate() {
				return false
			}
			log.Printf("Executor: loop iteration %d", i)
			if !e.exec(cmd.Body) {
				return false
			}
		}
	}

	for i := 1; i <= *cmd.Count; i++ {
		if !e.gate() {
			return false
		}
		log.Printf("Executor: loop iteration %d/%d", i, *cmd.Count)
		if !e.exec(cmd.Body) {
			return false
		}
	}
	return true
}
