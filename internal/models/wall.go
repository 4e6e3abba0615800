package models

import (
	"fmt"

	"go-mas-sim/internal/agent"
	"go-mas-sim/internal/collision"
	"go-mas-sim/internal/core"
)

// Wall is a static segment. It answers every ball position with the
// predicted impact, if any.
type Wall struct {
	seg collision.Segment
}

func NewWall(x1, y1, x2, y2 float64) *Wall {
	return &Wall{seg: collision.NewSegment(collision.Point{X: x1, Y: y1}, collision.Point{X: x2, Y: y2})}
}

func (w *Wall) Segment() collision.Segment { return w.seg }

func (w *Wall) Init(a *agent.Agent[core.Event]) error { return nil }

func (w *Wall) Dynamic(a *agent.Agent[core.Event]) error { return nil }

func (w *Wall) HandleMessage(a *agent.Agent[core.Event], msg core.Message) error {
	if msg.Subject != SubjectBallPosition {
		return nil
	}
	ball, err := bodyFrom(msg.Props, a.Now())
	if err != nil {
		return fmt.Errorf("ball position from %s: %w", msg.Sender, err)
	}
	c := ball.at(a.Now())
	hit, ok := c.SegmentImpact(w.seg, ball.dir)
	if !ok || hit.Distance <= 0 {
		return nil
	}
	v := collision.NewCircle(hit.Center, c.Radius).ReflectOffSegment(w.seg, ball.dir)

	m := core.NewMessage(a.Name(), msg.Sender, SubjectCollision)
	m.Props.SetText(core.AttrType, SubjectCollision)
	m.Props.SetText(core.AttrTo, msg.Sender)
	m.Props.SetText(attrWith, "wall")
	m.Props.SetNumber(attrNewX, hit.Center.X)
	m.Props.SetNumber(attrNewY, hit.Center.Y)
	m.Props.SetNumber(attrNewDX, v.X)
	m.Props.SetNumber(attrNewDY, v.Y)
	m.Props.SetNumber(attrDistance, hit.Distance)
	m.Props.SetNumber(core.AttrTime, a.Now()+hit.Time)
	m.Props.SetNumber("wall_x1", w.seg.End1.X)
	m.Props.SetNumber("wall_y1", w.seg.End1.Y)
	m.Props.SetNumber("wall_x2", w.seg.End2.X)
	m.Props.SetNumber("wall_y2", w.seg.End2.Y)
	a.Send(m)
	return nil
}
