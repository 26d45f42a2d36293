package migrate

import (
	"errors"
	"fmt"
)

// State is one step of a migration. A migration moves through the states
// in order and never goes back.
type State int

const (
	Precheck State = iota
	Confirm
	Partition
	Format
	Mount
	Clone
	Patch
	Finalize
	Done
)

var stateNames = [...]string{
	Precheck:  "precheck",
	Confirm:   "confirm",
	Partition: "partition",
	Format:    "format",
	Mount:     "mount",
	Clone:     "clone",
	Patch:     "patch",
	Finalize:  "finalize",
	Done:      "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// States lists the states that do work, in order.
func States() []State {
	states := make([]State, 0, int(Done))
	for s := Precheck; s < Done; s++ {
		states = append(states, s)
	}
	return states
}

// Destructive reports whether s (or any later state) modifies the
// destination device.
func (s State) Destructive() bool {
	return s >= Partition && s < Done
}

// ErrAborted is returned when the operator does not confirm the migration.
var ErrAborted = errors.New("aborted by operator")

// StepError is returned by Run when a state fails.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
