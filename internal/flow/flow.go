// Package flow is the state machine a simulation moves through from first view to results.
package flow

import (
	"errors"
	"fmt"
)

// State of one simulation flow
type State string

const (
	Intro      State = "intro"
	Collecting State = "collecting"
	Generating State = "generating"
	Presenting State = "presenting"
)

// Event drives a transition
type Event string

const (
	Start    Event = "start"    // intro -> collecting
	Submit   Event = "submit"   // collecting -> generating
	Complete Event = "complete" // generating -> presenting
	Reset    Event = "reset"    // any -> intro
)

// ErrInvalidTransition is returned for an event that does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid transition")

var transitions = map[State]map[Event]State{
	Intro:      {Start: Collecting},
	Collecting: {Submit: Generating},
	Generating: {Complete: Presenting},
	Presenting: {Start: Collecting},
}

// Transition returns the state after applying e to s.
func Transition(s State, e Event) (State, error) {
	if !s.Valid() {
		return s, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, s)
	}
	if e == Reset {
		return Intro, nil
	}
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Machine tracks the current state of one flow. Not safe for concurrent use.
type Machine struct {
	state State
}

// NewMachine starts at Intro.
func NewMachine() *Machine {
	return &Machine{state: Intro}
}

// Resume continues from a persisted state; unknown states restart at Intro.
func Resume(s State) *Machine {
	if !s.Valid() {
		s = Intro
	}
	return &Machine{state: s}
}

// State is the current state.
func (m *Machine) State() State {
	return m.state
}

// Fire applies e, leaving the state unchanged on error.
func (m *Machine) Fire(e Event) error {
	next, err := Transition(m.state, e)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}
