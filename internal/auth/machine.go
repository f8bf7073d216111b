// Package auth implements the portal's login flows: staff login (also used
// by drivers), the client portal with its login and registration modes, and
// the two-step password recovery.
//
// Each flow is a small state machine. A flow only ever writes the session
// token of its own kind, and only after the API issued one.
package auth

import (
	"errors"
	"log/slog"
	"sync"
)

// State is the phase of a login flow.
type State int

const (
	StateAnonymous State = iota
	StateSubmitting
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateSubmitting:
		return "submitting"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrSubmitting is returned by Begin while a submission is pending. It is
// the server-side equivalent of a disabled submit button.
var ErrSubmitting = errors.New("auth: submission already in progress")

// Machine tracks the state of one flow instance. Failures pass through
// StateError and settle back in StateAnonymous with the error kept for
// display, so the form can be corrected and sent again.
type Machine struct {
	mu      sync.Mutex
	state   State
	lastErr error

	// OnTransition, when set, is called after every state change with the
	// machine unlocked.
	OnTransition func(from, to State)
}

// NewMachine returns a machine in the given initial state.
func NewMachine(initial State) *Machine {
	return &Machine{state: initial}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error of the last failed submission, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Begin moves to StateSubmitting.
func (m *Machine) Begin() error {
	m.mu.Lock()
	if m.state == StateSubmitting {
		m.mu.Unlock()
		return ErrSubmitting
	}
	from := m.state
	m.state = StateSubmitting
	m.lastErr = nil
	m.mu.Unlock()

	m.notify(from, StateSubmitting)
	return nil
}

// Succeed moves to StateAuthenticated.
func (m *Machine) Succeed() {
	m.move(StateAuthenticated, nil)
}

// Fail records err and returns to StateAnonymous through StateError.
func (m *Machine) Fail(err error) {
	m.move(StateError, err)
	m.move(StateAnonymous, err)
}

// Reset returns to StateAnonymous and forgets the last error. It is what
// logout does to the flow.
func (m *Machine) Reset() {
	m.move(StateAnonymous, nil)
}

func (m *Machine) move(to State, err error) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.lastErr = err
	m.mu.Unlock()

	if from != to {
		m.notify(from, to)
	}
}

func (m *Machine) notify(from, to State) {
	if m.OnTransition != nil {
		m.OnTransition(from, to)
	}
}

// logTransitions returns an OnTransition hook writing each change at debug.
func logTransitions(logger *slog.Logger, flow string) func(from, to State) {
	return func(from, to State) {
		logger.Debug("login state changed", "flow", flow, "from", from.String(), "to", to.String())
	}
}
