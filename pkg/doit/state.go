package doit

import "fmt"

// State is the observable state of a Sequence.
type State int

// Possible values for State.
const (
	// No error is pending and no step is running or waiting for join
	// callbacks.
	Idle State = iota
	// A step is running or waiting for join callbacks.
	Draining
	// An error is pending.
	Faulted
	// A catch step has cleared an error, and no step has run since.
	Recovered
)

var stateNames = [...]string{"idle", "draining", "faulted", "recovered"}

func (st State) String() string {
	if st < 0 || int(st) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(st))
	}
	return stateNames[st]
}

// State returns the current state of the sequence.
func (s *Sequence) State() State {
	switch {
	case s.err != nil:
		return Faulted
	case s.draining || s.busy > 0:
		return Draining
	case s.recovered:
		return Recovered
	}
	return Idle
}
