// Package session keeps the dashboard's in-memory UI state. It resets on
// server restart.
package session

import (
	"errors"
	"sync"
	"time"
)

// Step size bounds for the dashboard slider.
const (
	MinStepSize     = 0.1
	MaxStepSize     = 3.0
	DefaultStepSize = 1.0
)

// ErrInvalidStepSize is returned for step sizes outside the slider range.
var ErrInvalidStepSize = errors.New("step size must be between 0.1 and 3.0")

// State is the current session state.
type State struct {
	SelectedScript string    `json:"selected_script,omitempty"`
	StepSize       float64   `json:"step_size"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Update carries the fields of a partial session update. Nil fields are
// left unchanged.
type Update struct {
	SelectedScript *string  `json:"selected_script"`
	StepSize       *float64 `json:"step_size"`
}

// Manager guards the session state.
type Manager struct {
	mu        sync.Mutex
	state     State
	onChanged func(State)
}

// NewManager creates a manager with the default state.
func NewManager() *Manager {
	return &Manager{state: defaultState()}
}

func defaultState() State {
	return State{
		StepSize:    DefaultStepSize,
		LastUpdated: time.Now(),
	}
}

// RegisterChangeCallback registers a function to be called after every
// mutation.
func (m *Manager) RegisterChangeCallback(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}

// Get returns the current session state.
func (m *Manager) Get() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Update applies the non-nil fields of u and returns the new state. The
// whole update is rejected when the step size is out of range.
func (m *Manager) Update(u Update) (State, error) {
	if u.StepSize != nil && (*u.StepSize < MinStepSize || *u.StepSize > MaxStepSize) {
		return m.Get(), ErrInvalidStepSize
	}

	m.mu.Lock()
	updated := false
	if u.SelectedScript != nil {
		m.state.SelectedScript = *u.SelectedScript
		updated = true
	}
	if u.StepSize != nil {
		m.state.StepSize = *u.StepSize
		updated = true
	}
	if updated {
		m.state.LastUpdated = time.Now()
	}
	st := m.state
	cb := m.onChanged
	m.mu.Unlock()

	if updated && cb != nil {
		cb(st)
	}
	return st, nil
}

// Clear resets the session to its default state.
func (m *Manager) Clear() State {
	m.mu.Lock()
	m.state = defaultState()
	st := m.state
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb(st)
	}
	return st
}
