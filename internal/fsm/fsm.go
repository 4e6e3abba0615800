// Package fsm is a small table-driven finite state machine.
package fsm

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrInvalidTransition is returned when no transition matches the
// current state and trigger.
var ErrInvalidTransition = errors.New("invalid transition")

// State represents a state identifier.
type State string

// Event represents a transition trigger.
type Event string

// Transition defines a state change caused by an event.
type Transition struct {
	From   State
	Event  Event
	To     State
	Action func() error
}

// StateActions groups callbacks for a state lifecycle.
type StateActions struct {
	OnEnter func() error
	OnExit  func() error
}

// FSM is a simple finite state machine implementation.
type FSM struct {
	id           string
	initial      State
	currentState State
	transitions  map[State]map[Event]Transition
	stateActions map[State]StateActions
	mu           sync.RWMutex
	logger       *log.Logger
}

// NewFSM creates a new FSM.
func NewFSM(id string, initialState State, logger *log.Logger) *FSM {
	if logger == nil {
		logger = log.Default()
	}
	return &FSM{
		id:           id,
		initial:      initialState,
		currentState: initialState,
		transitions:  make(map[State]map[Event]Transition),
		stateActions: make(map[State]StateActions),
		logger:       logger,
	}
}

// ID returns the FSM identifier.
func (f *FSM) ID() string { return f.id }

// AddTransition registers a transition.
func (f *FSM) AddTransition(t Transition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transitions[t.From]; !ok {
		f.transitions[t.From] = make(map[Event]Transition)
	}
	f.transitions[t.From][t.Event] = t
}

// AddTransitions registers the same trigger from several states.
func (f *FSM) AddTransitions(e Event, to State, from ...State) {
	for _, s := range from {
		f.AddTransition(Transition{From: s, Event: e, To: to})
	}
}

// AddStateActions sets callbacks for a state.
func (f *FSM) AddStateActions(s State, actions StateActions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateActions[s] = actions
}

// ValidateTransitions checks that every state with callbacks or outgoing
// transitions can be reached from the initial state.
func (f *FSM) ValidateTransitions() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	reachable := map[State]bool{f.initial: true}
	queue := []State{f.initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range f.transitions[s] {
			if t.To == "" {
				return fmt.Errorf("transition %s --%s--> empty state", t.From, t.Event)
			}
			if !reachable[t.To] {
				reachable[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	for s := range f.transitions {
		if !reachable[s] {
			return fmt.Errorf("state %s unreachable", s)
		}
	}
	for s := range f.stateActions {
		if !reachable[s] {
			return fmt.Errorf("state %s unreachable", s)
		}
	}
	return nil
}

// Allows reports whether e is a valid trigger in the current state.
func (f *FSM) Allows(e Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.transitions[f.currentState][e]
	return ok
}

// Trigger moves the FSM according to an event. Exit and enter callbacks
// run only when the state actually changes.
func (f *FSM) Trigger(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trans, ok := f.transitions[f.currentState][e]
	if !ok {
		return fmt.Errorf("%s: %s in state %s: %w", f.id, e, f.currentState, ErrInvalidTransition)
	}
	changing := trans.To != f.currentState
	if act, ok := f.stateActions[f.currentState]; changing && ok && act.OnExit != nil {
		if err := act.OnExit(); err != nil {
			f.logger.Printf("fsm %s: exit %s: %v", f.id, f.currentState, err)
		}
	}
	if trans.Action != nil {
		if err := trans.Action(); err != nil {
			return err
		}
	}
	f.currentState = trans.To
	if act, ok := f.stateActions[f.currentState]; changing && ok && act.OnEnter != nil {
		if err := act.OnEnter(); err != nil {
			f.logger.Printf("fsm %s: enter %s: %v", f.id, f.currentState, err)
		}
	}
	return nil
}

// Current returns the current state.
func (f *FSM) Current() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.currentState
}
