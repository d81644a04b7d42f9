package investigator

import "fmt"

type State string

const (
	StateInit           State = "INIT"
	StateAwaitingOracle State = "AWAITING_ORACLE"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateCompleted      State = "COMPLETED"
	StateExhausted      State = "EXHAUSTED"
	StateAborted        State = "ABORTED"
)

var transitions = map[State][]State{
	StateInit:           {StateAwaitingOracle},
	StateAwaitingOracle: {StateAwaitingOracle, StateExecutingTools, StateExhausted, StateAborted},
	StateExecutingTools: {StateAwaitingOracle, StateCompleted},
}

// Terminal reports whether the run is over in this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateExhausted || s == StateAborted
}

func (s State) canTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// transition moves the session to the given state. An illegal transition
// is a bug in the loop, not a runtime condition.
func (s *Session) transition(to State) {
	if !s.State.canTransition(to) {
		panic(fmt.Sprintf("illegal state transition %s -> %s", s.State, to))
	}
	s.State = to
}
