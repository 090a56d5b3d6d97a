package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/crmlive/internal/bus"
)

// State represents the daemon runtime state.
type State string

const (
	Booting State = "BOOTING"
	// Loading: client directory refresh and global feed subscription.
	Loading  State = "LOADING"
	Ready    State = "READY"
	Degraded State = "DEGRADED"
	Error    State = "ERROR"
	Stopping State = "STOPPING"
)

// validTransitions defines allowed state transitions. DEGRADED means the
// feed failed and notifications are stale until the next activation.
var validTransitions = map[State][]State{
	Booting:  {Loading, Error, Stopping},
	Loading:  {Ready, Degraded, Error, Stopping},
	Ready:    {Loading, Degraded, Stopping},
	Degraded: {Loading, Ready, Error, Stopping},
	Error:    {Booting, Stopping},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	reason  string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reason returns the detail recorded with the last transition.
func (m *Machine) Reason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reason
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	return m.TransitionWithReason(to, "")
}

// TransitionWithReason is Transition with a human readable cause, shown by
// crmctl status.
func (m *Machine) TransitionWithReason(to State, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.reason = reason
	m.bus.Emit(bus.StatusChanged, StatusChange{From: from, To: to, Reason: reason})
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From   State
	To     State
	Reason string
}
