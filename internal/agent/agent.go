// Package agent implements the generic lifecycle every simulated agent
// follows: INIT, then IDLE and OUTPUT alternating as the agent consumes
// its own scheduled items and emits messages.
package agent

import (
	"errors"
	"fmt"
	"log"

	"go-mas-sim/internal/core"
	"go-mas-sim/internal/fsm"
	"go-mas-sim/internal/scheduler"
)

// ErrProtocolViolation is returned when the kernel calls a lifecycle
// method in a state that forbids it.
var ErrProtocolViolation = errors.New("protocol violation")

// Lifecycle states.
const (
	StateInit   fsm.State = "INIT"
	StateIdle   fsm.State = "IDLE"
	StateOutput fsm.State = "OUTPUT"
)

const (
	evInitialize fsm.Event = "initialize"
	evDynamic    fsm.Event = "dynamic"
	evFlush      fsm.Event = "flush"
	evEmit       fsm.Event = "emit"
)

// Item is what an agent schedules for itself.
type Item[T any] interface {
	scheduler.Item[T]
	When() core.Time
}

// Behavior is the agent-specific part of a model.
type Behavior[T Item[T]] interface {
	// Init runs once, on the first internal transition.
	Init(a *Agent[T]) error
	// Dynamic consumes due scheduled items.
	Dynamic(a *Agent[T]) error
	// HandleMessage reacts to one message addressed to the agent.
	HandleMessage(a *Agent[T], msg core.Message) error
}

// Observer is implemented by behaviors exposing observable state.
type Observer[T Item[T]] interface {
	Observe(a *Agent[T]) core.Properties
}

type settings struct {
	logger    *log.Logger
	schedOpts []scheduler.Option
}

// Option configures an Agent.
type Option func(*settings)

// WithLogger sets the logger used for behavior errors.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithSchedulerOptions forwards options to the agent's scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *settings) { s.schedOpts = append(s.schedOpts, opts...) }
}

// Agent drives a Behavior through the lifecycle. It implements
// core.Dynamics and core.Observable.
type Agent[T Item[T]] struct {
	name     string
	behavior Behavior[T]
	sched    *scheduler.Scheduler[T]
	outbox   []core.Message
	machine  *fsm.FSM
	started  bool
	now      core.Time
	logger   *log.Logger
}

// New returns an agent in INIT.
func New[T Item[T]](name string, b Behavior[T], opts ...Option) *Agent[T] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	a := &Agent[T]{
		name:     name,
		behavior: b,
		sched:    scheduler.New[T](s.schedOpts...),
		logger:   s.logger,
	}
	m := fsm.NewFSM(name, StateInit, s.logger)
	m.AddTransition(fsm.Transition{From: StateInit, Event: evInitialize, To: StateIdle})
	m.AddTransition(fsm.Transition{From: StateIdle, Event: evDynamic, To: StateIdle})
	m.AddTransition(fsm.Transition{From: StateOutput, Event: evFlush, To: StateIdle})
	m.AddTransitions(evEmit, StateOutput, StateIdle, StateOutput)
	m.AddStateActions(StateOutput, fsm.StateActions{
		OnExit: func() error {
			a.outbox = a.outbox[:0]
			return nil
		},
	})
	a.machine = m
	return a
}

func (a *Agent[T]) Name() string { return a.name }

// State returns the lifecycle state.
func (a *Agent[T]) State() fsm.State { return a.machine.Current() }

// Now is the time of the transition being processed.
func (a *Agent[T]) Now() core.Time { return a.now }

func (a *Agent[T]) Scheduler() *scheduler.Scheduler[T] { return a.sched }

func (a *Agent[T]) Logger() *log.Logger { return a.logger }

// Pending returns the buffered outgoing messages.
func (a *Agent[T]) Pending() []core.Message { return a.outbox }

// Send buffers msg for the next output. An empty sender is filled with
// the agent name.
func (a *Agent[T]) Send(msg core.Message) {
	if msg.Sender == "" {
		msg.Sender = a.name
	}
	a.outbox = append(a.outbox, msg)
}

// PopDue removes and returns the next scheduled item if it is due.
func (a *Agent[T]) PopDue() (T, bool) {
	next, err := a.sched.PeekNext()
	if err != nil || next.When() > a.now {
		var zero T
		return zero, false
	}
	_, _ = a.sched.RemoveNext()
	return next, true
}

// Init is the one-shot entry point. The first internal transition is
// requested immediately.
func (a *Agent[T]) Init(t core.Time) (core.Time, error) {
	if a.started || a.State() != StateInit {
		return 0, fmt.Errorf("%s: init in state %s: %w", a.name, a.State(), ErrProtocolViolation)
	}
	a.started = true
	a.now = t
	return 0, nil
}

// TimeAdvance returns the delay until the next internal transition.
func (a *Agent[T]) TimeAdvance() (core.Time, error) {
	switch a.State() {
	case StateInit:
		return 0, fmt.Errorf("%s: time advance before initialization: %w", a.name, ErrProtocolViolation)
	case StateOutput:
		return 0, nil
	}
	if len(a.outbox) > 0 {
		return 0, nil
	}
	next, err := a.sched.PeekNext()
	if err != nil {
		return core.Infinity, nil
	}
	if core.IsInfinite(next.When()) {
		return core.Infinity, nil
	}
	if d := next.When() - a.now; d > 0 {
		return d, nil
	}
	return 0, nil
}

// InternalTransition runs the behavior for the current state.
func (a *Agent[T]) InternalTransition(t core.Time) error {
	if !a.started {
		return fmt.Errorf("%s: internal transition before init: %w", a.name, ErrProtocolViolation)
	}
	a.now = t
	switch a.State() {
	case StateInit:
		if err := a.behavior.Init(a); err != nil {
			a.logger.Printf("agent %s: init: %v", a.name, err)
		}
		if err := a.trigger(evInitialize); err != nil {
			return err
		}
	case StateIdle:
		if err := a.behavior.Dynamic(a); err != nil {
			a.logger.Printf("agent %s: dynamic at %v: %v", a.name, t, err)
		}
		if err := a.trigger(evDynamic); err != nil {
			return err
		}
	case StateOutput:
		if err := a.trigger(evFlush); err != nil {
			return err
		}
	}
	if len(a.outbox) > 0 {
		return a.trigger(evEmit)
	}
	return nil
}

// ExternalTransition delivers the events addressed to this agent.
func (a *Agent[T]) ExternalTransition(events []core.WireEvent, t core.Time) error {
	if !a.started {
		return fmt.Errorf("%s: external transition before init: %w", a.name, ErrProtocolViolation)
	}
	a.now = t
	for _, ev := range events {
		if ev.Port != core.InputPort {
			continue
		}
		msg, err := core.MessageFromWire(ev)
		if err != nil {
			a.logger.Printf("agent %s: %v", a.name, err)
			continue
		}
		if !msg.AddressedTo(a.name) || (msg.IsBroadcast() && msg.Sender == a.name) {
			continue
		}
		if err := a.behavior.HandleMessage(a, msg); err != nil {
			a.logger.Printf("agent %s: %s from %s: %v", a.name, msg.Subject, msg.Sender, err)
		}
	}
	if len(a.outbox) > 0 && a.State() != StateInit {
		return a.trigger(evEmit)
	}
	return nil
}

// Output returns the buffered messages as wire events while in OUTPUT.
// It does not consume them.
func (a *Agent[T]) Output(t core.Time) []core.WireEvent {
	if a.State() != StateOutput {
		return nil
	}
	out := make([]core.WireEvent, 0, len(a.outbox))
	for _, m := range a.outbox {
		ev := m.Wire(core.OutputPort)
		ev.Attrs.SetText(core.AttrFrom, a.name)
		out = append(out, ev)
	}
	return out
}

// Observation implements core.Observable.
func (a *Agent[T]) Observation(t core.Time) core.Properties {
	o, ok := a.behavior.(Observer[T])
	if !ok || !a.started {
		return nil
	}
	saved := a.now
	a.now = t
	defer func() { a.now = saved }()
	return o.Observe(a)
}

func (a *Agent[T]) trigger(e fsm.Event) error {
	if err := a.machine.Trigger(e); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	return nil
}

var (
	_ core.Dynamics   = (*Agent[core.Effect])(nil)
	_ core.Observable = (*Agent[core.Event])(nil)
)
