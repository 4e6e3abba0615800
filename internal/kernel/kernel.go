// Package kernel is a DEVS root coordinator: it keeps the calendar of
// next wake times, collects outputs of imminent models, routes them and
// applies transitions.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"go-mas-sim/internal/core"
	"go-mas-sim/internal/scheduler"
)

var (
	ErrDuplicateModel = errors.New("duplicate model")
	ErrNotInitialized = errors.New("coordinator not initialized")
	// ErrZenoLoop is returned when too many steps happen at one instant.
	ErrZenoLoop = errors.New("too many steps at one instant")
)

const defaultMaxStepsPerInstant = 10000

// Observer receives what the coordinator routes and the state of the
// models it touched. Errors are logged.
type Observer interface {
	ObserveOutput(ctx context.Context, rec core.Record) error
	ObserveState(ctx context.Context, obs core.Observation) error
}

// wake is one calendar entry: model name and its next internal time.
type wake struct {
	name string
	at   core.Time
	seq  int
}

func (w wake) Less(o wake) bool {
	if w.at != o.at {
		return w.at < o.at
	}
	return w.seq < o.seq
}

func (w wake) SameAs(o wake) bool { return w.name == o.name }

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithObservers(obs ...Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, obs...) }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(c *Coordinator) { c.runID = id }
}

// WithMaxStepsPerInstant bounds consecutive steps at the same time.
func WithMaxStepsPerInstant(n int) Option {
	return func(c *Coordinator) { c.maxSteps = n }
}

// Coordinator runs a flat set of models. It is not safe for concurrent
// use.
type Coordinator struct {
	runID     string
	models    map[string]core.Dynamics
	order     []string
	seq       map[string]int
	calendar  *scheduler.Scheduler[wake]
	observers []Observer
	logger    *log.Logger

	initialized bool
	now         core.Time
	steps       int
	atInstant   int
	maxSteps    int
}

func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		models:   make(map[string]core.Dynamics),
		seq:      make(map[string]int),
		calendar: scheduler.New[wake](),
		maxSteps: defaultMaxStepsPerInstant,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	return c
}

func (c *Coordinator) RunID() string { return c.runID }

// Now is the time of the last step.
func (c *Coordinator) Now() core.Time { return c.now }

// Steps is the number of steps run so far.
func (c *Coordinator) Steps() int { return c.steps }

// Models returns model names in insertion order.
func (c *Coordinator) Models() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Coordinator) Model(name string) (core.Dynamics, bool) {
	m, ok := c.models[name]
	return m, ok
}

// Add registers a model. Models added after Init are initialized at the
// current time.
func (c *Coordinator) Add(m core.Dynamics) error {
	name := m.Name()
	if _, ok := c.models[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicateModel)
	}
	c.models[name] = m
	c.seq[name] = len(c.order)
	c.order = append(c.order, name)
	if c.initialized {
		return c.initModel(name, c.now)
	}
	return nil
}

// Init initializes every model at t.
func (c *Coordinator) Init(t core.Time) error {
	c.now = t
	for _, name := range c.order {
		if err := c.initModel(name, t); err != nil {
			return err
		}
	}
	c.initialized = true
	c.logger.Printf("run %s: %d models initialized at %v", c.runID, len(c.order), t)
	return nil
}

func (c *Coordinator) initModel(name string, t core.Time) error {
	d, err := c.models[name].Init(t)
	if err != nil {
		return fmt.Errorf("init %s: %w", name, err)
	}
	c.calendar.Upsert(wake{name: name, at: t + d, seq: c.seq[name]})
	return nil
}

// Next returns the time of the next step, or core.Infinity.
func (c *Coordinator) Next() core.Time {
	w, err := c.calendar.PeekNext()
	if err != nil {
		return core.Infinity
	}
	return w.at
}

// Step runs every model imminent at Next.
func (c *Coordinator) Step(ctx context.Context) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	t := c.Next()
	if core.IsInfinite(t) {
		return nil
	}
	if t == c.now && c.steps > 0 {
		c.atInstant++
		if c.atInstant >= c.maxSteps {
			return fmt.Errorf("t=%v after %d steps: %w", t, c.atInstant, ErrZenoLoop)
		}
	} else {
		c.atInstant = 0
	}
	c.now = t
	c.steps++

	var imminent []string
	for {
		w, err := c.calendar.PeekNext()
		if err != nil || w.at != t {
			break
		}
		_, _ = c.calendar.RemoveNext()
		imminent = append(imminent, w.name)
	}

	inbox := make(map[string][]core.WireEvent)
	for _, name := range imminent {
		for _, ev := range c.models[name].Output(t) {
			c.observeOutput(ctx, core.NewRecord(c.runID, t, name, ev))
			c.route(name, ev, inbox)
		}
	}

	touched := make(map[string]bool, len(imminent)+len(inbox))
	for _, name := range imminent {
		if err := c.models[name].InternalTransition(t); err != nil {
			return fmt.Errorf("internal transition %s at %v: %w", name, t, err)
		}
		touched[name] = true
	}
	for _, name := range c.order {
		events, ok := inbox[name]
		if !ok {
			continue
		}
		if err := c.models[name].ExternalTransition(events, t); err != nil {
			return fmt.Errorf("external transition %s at %v: %w", name, t, err)
		}
		touched[name] = true
	}

	for _, name := range c.order {
		if !touched[name] {
			continue
		}
		m := c.models[name]
		ta, err := m.TimeAdvance()
		if err != nil {
			return fmt.Errorf("time advance %s at %v: %w", name, t, err)
		}
		c.calendar.Upsert(wake{name: name, at: t + ta, seq: c.seq[name]})
		if o, ok := m.(core.Observable); ok {
			if p := o.Observation(t); p != nil {
				c.observeState(ctx, core.NewObservation(c.runID, t, name, p))
			}
		}
	}
	return nil
}

// route delivers ev to its receivers as an input event. Each receiver gets
// its own copy.
func (c *Coordinator) route(sender string, ev core.WireEvent, inbox map[string][]core.WireEvent) {
	in := ev.Clone()
	in.Port = core.InputPort
	receiver := ev.Attrs.TextOr(core.AttrReceiver, "")
	if receiver != "" && receiver != core.Broadcast {
		if _, ok := c.models[receiver]; !ok {
			c.logger.Printf("run %s: %s sent %q to unknown model %q", c.runID, sender,
				ev.Attrs.TextOr(core.AttrSubject, ""), receiver)
			return
		}
		inbox[receiver] = append(inbox[receiver], in)
		return
	}
	for _, name := range c.order {
		if name == sender {
			continue
		}
		inbox[name] = append(inbox[name], in.Clone())
	}
}

// Run steps until the next event is after until, nothing is scheduled or
// ctx is done.
func (c *Coordinator) Run(ctx context.Context, until core.Time) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := c.Next()
		if core.IsInfinite(next) || next > until {
			break
		}
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
	c.logger.Printf("run %s: stopped at %v after %d steps", c.runID, c.now, c.steps)
	return nil
}

func (c *Coordinator) observeOutput(ctx context.Context, rec core.Record) {
	for _, o := range c.observers {
		if err := o.ObserveOutput(ctx, rec); err != nil {
			c.logger.Printf("run %s: observer output: %v", c.runID, err)
		}
	}
}

func (c *Coordinator) observeState(ctx context.Context, obs core.Observation) {
	for _, o := range c.observers {
		if err := o.ObserveState(ctx, obs); err != nil {
			c.logger.Printf("run %s: observer state: %v", c.runID, err)
		}
	}
}
