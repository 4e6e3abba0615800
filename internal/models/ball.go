package models

import (
	"fmt"
	"math"

	"go-mas-sim/internal/agent"
	"go-mas-sim/internal/collision"
	"go-mas-sim/internal/core"
)

// Ball bounces off walls and other balls. It keeps one collision
// prediction per origin in its scheduler.
type Ball struct {
	body
}

func NewBall(x, y, dx, dy, radius float64) *Ball {
	return &Ball{body: body{
		center: collision.Point{X: x, Y: y},
		dir:    collision.Vector2d{X: dx, Y: dy},
		radius: radius,
	}}
}

func collisionKey(origin string) string { return "collision:" + origin }

func (b *Ball) Init(a *agent.Agent[core.Event]) error {
	b.since = a.Now()
	b.announce(a, core.Broadcast, SubjectBallPosition)
	return nil
}

// Dynamic applies the next due collision. Every other prediction is
// dropped afterwards since the trajectory changed; walls and balls
// answer the new announcement.
func (b *Ball) Dynamic(a *agent.Agent[core.Event]) error {
	next, ok := a.PopDue()
	if !ok {
		return nil
	}
	defer a.Scheduler().Clear()

	if next.Props.TextOr(core.AttrType, "") != SubjectCollision {
		return nil
	}
	x, err := next.Props.Number(attrNewX)
	if err != nil {
		return err
	}
	y, err := next.Props.Number(attrNewY)
	if err != nil {
		return err
	}

	corner := false
	if following, err := a.Scheduler().PeekNext(); err == nil && !core.IsInfinite(following.Time) {
		corner = collision.IsCorner(impactOf(next), impactOf(following))
	}

	b.center = collision.Point{X: x, Y: y}
	b.since = a.Now()
	if corner {
		b.dir = b.dir.Neg()
	} else {
		dx, err := next.Props.Number(attrNewDX)
		if err != nil {
			return err
		}
		dy, err := next.Props.Number(attrNewDY)
		if err != nil {
			return err
		}
		b.dir = collision.Vector2d{X: dx, Y: dy}
	}
	b.announce(a, core.Broadcast, SubjectBallPosition)
	return nil
}

func (b *Ball) HandleMessage(a *agent.Agent[core.Event], msg core.Message) error {
	switch msg.Subject {
	case SubjectCollision:
		return b.scheduleCollision(a, msg)
	case SubjectBallPosition:
		if err := b.predict(a, msg); err != nil {
			return err
		}
		b.announce(a, msg.Sender, SubjectBallState)
		return nil
	case SubjectBallState:
		return b.predict(a, msg)
	}
	return nil
}

func (b *Ball) Observe(a *agent.Agent[core.Event]) core.Properties {
	return b.state(a.Now(), core.NewProperties())
}

func (b *Ball) announce(a *agent.Agent[core.Event], to, subject string) {
	m := core.NewMessage(a.Name(), to, subject)
	b.state(a.Now(), m.Props)
	m.Props.SetText(core.AttrType, SubjectBallPosition)
	a.Send(m)
}

func (b *Ball) scheduleCollision(a *agent.Agent[core.Event], msg core.Message) error {
	if to := msg.Props.TextOr(core.AttrTo, a.Name()); to != a.Name() {
		return nil
	}
	t, err := msg.Props.Number(core.AttrTime)
	if err != nil {
		return fmt.Errorf("collision from %s: %w", msg.Sender, err)
	}
	ev := core.NewKeyedEvent(collisionKey(msg.Sender), t)
	ev.Props = msg.Props.Clone()
	a.Scheduler().Upsert(ev)
	return nil
}

// predict computes the impact with the ball described by msg, or cancels
// a previous prediction that no longer holds.
func (b *Ball) predict(a *agent.Agent[core.Event], msg core.Message) error {
	other, err := bodyFrom(msg.Props, a.Now())
	if err != nil {
		return fmt.Errorf("%s from %s: %w", msg.Subject, msg.Sender, err)
	}
	now := a.Now()
	me := b.at(now)
	key := collisionKey(msg.Sender)

	hit, ok := me.CircleImpact(b.dir, other.at(now), other.dir)
	if !ok || hit.Leaving || hit.Time <= 0 {
		stale := core.NewKeyedEvent(key, core.Infinity)
		if a.Scheduler().Exists(stale) {
			_ = a.Scheduler().Update(stale)
		}
		return nil
	}

	at := collision.NewCircle(hit.OtherCenter, other.radius)
	v := collision.NewCircle(hit.Center, b.radius).ReflectOffCircle(b.dir, at)
	ev := core.NewKeyedEvent(key, now+hit.Time)
	ev.Props.SetText(core.AttrType, SubjectCollision)
	ev.Props.SetText(core.AttrTo, a.Name())
	ev.Props.SetText(attrWith, "ball")
	ev.Props.SetNumber(attrNewX, hit.Center.X)
	ev.Props.SetNumber(attrNewY, hit.Center.Y)
	ev.Props.SetNumber(attrNewDX, v.X)
	ev.Props.SetNumber(attrNewDY, v.Y)
	ev.Props.SetNumber(attrDistance, hit.Distance)
	ev.Props.SetNumber(core.AttrTime, now+hit.Time)
	a.Scheduler().Upsert(ev)
	return nil
}

func impactOf(ev core.Event) collision.Impact {
	return collision.Impact{
		Position: collision.Point{
			X: ev.Props.NumberOr(attrNewX, math.NaN()),
			Y: ev.Props.NumberOr(attrNewY, math.NaN()),
		},
		Distance: ev.Props.NumberOr(attrDistance, math.NaN()),
		Time:     ev.Time,
	}
}
