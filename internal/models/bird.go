package models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go-mas-sim/internal/agent"
	"go-mas-sim/internal/collision"
	"go-mas-sim/internal/core"
	"go-mas-sim/internal/patterns/subsumption"
)

// Bird effect kinds.
const (
	EffectEnterAgain core.EffectKind = iota + 1
	EffectUpdate
	EffectNeighborhood
)

const (
	updateFirst  = 1.0
	updatePeriod = 1.5
	// wrapMargin puts a bird re-entering the sky just inside the edge.
	wrapMargin = 0.1

	attrLeaving = "leaving"
)

// ErrLeftSky is returned when a bird is found outside the sky bounds.
var ErrLeftSky = errors.New("bird left the sky")

// BirdParams are the flocking parameters. Turns are in degrees.
type BirdParams struct {
	Separation      float64
	MaxSeparateTurn float64
	MaxAlignTurn    float64
	Perception      float64
}

// DefaultBirdParams returns the parameters used when none are given.
func DefaultBirdParams() BirdParams {
	return BirdParams{Separation: 2, MaxSeparateTurn: 3, MaxAlignTurn: 5, Perception: 5}
}

type neighbor struct {
	pos collision.Point
	dir collision.Vector2d
	at  core.Time
}

func (n neighbor) position(t core.Time) collision.Point {
	return n.pos.Add(n.dir.Scale(t - n.at))
}

// Bird flies straight, wraps around the sky and periodically turns to
// keep away from its nearest neighbour or to align with its flockmates.
type Bird struct {
	body
	params    BirdParams
	neighbors map[string]neighbor
	effects   *agent.EffectTable
	steering  *subsumption.Arbiter
	agent     *agent.Agent[core.Effect]
}

func NewBird(x, y, dx, dy, radius float64, params BirdParams) *Bird {
	b := &Bird{
		body: body{
			center: collision.Point{X: x, Y: y},
			dir:    collision.Vector2d{X: dx, Y: dy},
			radius: radius,
		},
		params:    params,
		neighbors: make(map[string]neighbor),
		effects:   agent.NewEffectTable(),
	}
	b.effects.Register(EffectEnterAgain, "enterAgain", b.enterAgain)
	b.effects.Register(EffectUpdate, "updateAccordingNeighborhood", b.updateAccordingNeighborhood)
	b.effects.Register(EffectNeighborhood, "enterOrLeaveNeighborhood", b.enterOrLeaveNeighborhood)
	return b
}

// Neighbors returns the names of the birds currently perceived.
func (b *Bird) Neighbors() []string {
	out := make([]string, 0, len(b.neighbors))
	for name := range b.neighbors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (b *Bird) Init(a *agent.Agent[core.Effect]) error {
	b.agent = a
	b.steering = subsumption.NewArbiter(a.Logger(),
		subsumption.NewCruiseLayer(),
		subsumption.NewAlignmentLayer(b.params.MaxAlignTurn),
		subsumption.NewSeparationLayer(b.params.Separation, b.params.MaxSeparateTurn),
	)
	b.since = a.Now()
	b.announce(a)
	return a.Scheduler().Add(core.NewEffect(a.Now()+updateFirst, EffectUpdate, a.Name()))
}

// Dynamic applies one due effect.
func (b *Bird) Dynamic(a *agent.Agent[core.Effect]) error {
	b.agent = a
	// Other effects due at the same instant stay queued; TimeAdvance
	// returns 0 for them, so each one gets its own transition and output.
	e, ok := a.PopDue()
	if !ok {
		return nil
	}
	return b.effects.Apply(e)
}

func (b *Bird) HandleMessage(a *agent.Agent[core.Effect], msg core.Message) error {
	b.agent = a
	switch msg.Subject {
	case SubjectEnterAgain:
		return b.planWrap(a, msg)
	case SubjectBirdPosition:
		return b.perceive(a, msg)
	case SubjectAskPosition:
		b.announce(a)
	}
	return nil
}

func (b *Bird) Observe(a *agent.Agent[core.Effect]) core.Properties {
	p := b.state(a.Now(), core.NewProperties())
	p.SetNumber("neighbors", float64(len(b.neighbors)))
	if b.steering != nil && b.steering.Active() != "" {
		p.SetText("steering", b.steering.Active())
	}
	return p
}

func (b *Bird) announce(a *agent.Agent[core.Effect]) {
	m := core.NewMessage(a.Name(), core.Broadcast, SubjectBirdPosition)
	b.state(a.Now(), m.Props)
	a.Send(m)
}

func (b *Bird) askAll(a *agent.Agent[core.Effect]) {
	a.Send(core.NewMessage(a.Name(), core.Broadcast, SubjectAskPosition))
}

// planWrap schedules the wrap-around at the point where the bird leaves
// the sky described by msg.
func (b *Bird) planWrap(a *agent.Agent[core.Effect], msg core.Message) error {
	var bounds [4]float64
	for i, key := range []string{attrMinX, attrMaxX, attrMinY, attrMaxY} {
		f, err := msg.Props.Number(key)
		if err != nil {
			return fmt.Errorf("sky %s: %w", msg.Sender, err)
		}
		bounds[i] = f
	}
	minX, maxX, minY, maxY := bounds[0], bounds[1], bounds[2], bounds[3]

	now := a.Now()
	c := b.at(now).Center
	if c.X < minX-wrapMargin || c.X > maxX+wrapMargin || c.Y < minY-wrapMargin || c.Y > maxY+wrapMargin {
		return fmt.Errorf("at (%g;%g) t=%v: %w", c.X, c.Y, now, ErrLeftSky)
	}

	tx, ty := exitTime(c.X, b.dir.X, minX, maxX), exitTime(c.Y, b.dir.Y, minY, maxY)
	dt := math.Min(tx, ty)
	e := core.NewEffect(core.Infinity, EffectEnterAgain, msg.Sender)
	if !math.IsInf(dt, 1) {
		dt = math.Max(dt, 0)
		exit := c.Add(b.dir.Scale(dt))
		if tx <= ty {
			exit.X = maxX - wrapMargin
			if b.dir.X > 0 {
				exit.X = minX + wrapMargin
			}
		}
		if ty <= tx {
			exit.Y = maxY - wrapMargin
			if b.dir.Y > 0 {
				exit.Y = minY + wrapMargin
			}
		}
		e.Time = now + dt
		e.Props.SetNumber("newX", exit.X)
		e.Props.SetNumber("newY", exit.Y)
	}
	a.Scheduler().Upsert(e)
	return nil
}

// exitTime is when a coordinate p moving at v leaves [lo, hi].
func exitTime(p, v, lo, hi float64) float64 {
	switch {
	case v > 0:
		return (hi - p) / v
	case v < 0:
		return (lo - p) / v
	}
	return math.Inf(1)
}

// perceive tracks the bird described by msg: it becomes a neighbour while
// inside the perception circle, and an effect is scheduled for when it
// crosses the circle.
func (b *Bird) perceive(a *agent.Agent[core.Effect], msg core.Message) error {
	other, err := bodyFrom(msg.Props, a.Now())
	if err != nil {
		return fmt.Errorf("bird position from %s: %w", msg.Sender, err)
	}
	now := a.Now()
	me := b.at(now).Center
	info := neighbor{pos: other.center, dir: other.dir, at: now}

	inside := me.Distance(other.center) < b.params.Perception
	if inside {
		b.neighbors[msg.Sender] = info
	} else {
		delete(b.neighbors, msg.Sender)
	}

	e := core.NewEffect(core.Infinity, EffectNeighborhood, msg.Sender)
	sense := collision.NewCircle(me, b.params.Perception)
	point := collision.NewCircle(other.center, 0)
	if hit, ok := sense.CircleImpact(b.dir, point, other.dir); ok {
		e.Time = now + hit.Time
		if hit.Leaving {
			e.Props.SetNumber(attrLeaving, 1)
		}
	}
	e.Props.SetNumber(attrX, other.center.X)
	e.Props.SetNumber(attrY, other.center.Y)
	e.Props.SetNumber(attrDX, other.dir.X)
	e.Props.SetNumber(attrDY, other.dir.Y)
	e.Props.SetNumber(core.AttrTime, now)
	a.Scheduler().Upsert(e)
	return nil
}

func (b *Bird) enterAgain(e core.Effect) error {
	a := b.agent
	x, err := e.Props.Number("newX")
	if err != nil {
		return err
	}
	y, err := e.Props.Number("newY")
	if err != nil {
		return err
	}
	b.center = collision.Point{X: x, Y: y}
	b.since = a.Now()
	b.announce(a)
	b.askAll(a)
	return nil
}

func (b *Bird) enterOrLeaveNeighborhood(e core.Effect) error {
	if e.Props.NumberOr(attrLeaving, 0) != 0 {
		delete(b.neighbors, e.Origin)
		return nil
	}
	x, err := e.Props.Number(attrX)
	if err != nil {
		return err
	}
	y, err := e.Props.Number(attrY)
	if err != nil {
		return err
	}
	n := neighbor{
		pos: collision.Point{X: x, Y: y},
		dir: collision.Vector2d{X: e.Props.NumberOr(attrDX, 0), Y: e.Props.NumberOr(attrDY, 0)},
		at:  e.Props.NumberOr(core.AttrTime, b.agent.Now()),
	}
	b.neighbors[e.Origin] = n
	return nil
}

func (b *Bird) updateAccordingNeighborhood(e core.Effect) error {
	a := b.agent
	now := a.Now()
	b.rebase(now)
	if len(b.neighbors) > 0 {
		b.dir = b.dir.Rotate(b.turn(now))
		b.announce(a)
		b.askAll(a)
	}
	a.Scheduler().Upsert(core.NewEffect(now+updatePeriod, EffectUpdate, a.Name()))
	return nil
}

// turn returns the heading change in radians decided by the steering
// layers: away from the nearest neighbour when it is too close, towards
// the mean heading otherwise.
func (b *Bird) turn(now core.Time) float64 {
	sense := subsumption.Sense{Position: b.center, Heading: b.dir}
	for _, name := range b.Neighbors() {
		n := b.neighbors[name]
		sense.Neighbors = append(sense.Neighbors, subsumption.Neighbor{Name: name, Position: n.position(now), Heading: n.dir})
	}
	return b.steering.Arbitrate(sense)
}
